package courses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/AsliddinWeb/online-course-platform/internal/core/platform"
	"github.com/AsliddinWeb/online-course-platform/internal/infra/postgres"
)

var tracer = otel.Tracer("courses-service")

// Lesson is a scheduled video lesson. Video lives in Kinescope, written
// content in Notion, attachments in blob storage; this record only carries
// the references.
type Lesson struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	Description      string    `json:"description" db:"description"`
	Order            int       `json:"order" db:"lesson_order"`
	KinescopeVideoID string    `json:"kinescope_video_id" db:"kinescope_video_id"`
	VideoDuration    int       `json:"video_duration" db:"video_duration"`
	NotionPageID     string    `json:"notion_page_id" db:"notion_page_id"`
	MaterialURL      string    `json:"material_url" db:"material_url"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Schedule opens a lesson to every group of a group type from a point in time.
type Schedule struct {
	ID            uuid.UUID `json:"id" db:"id"`
	LessonID      uuid.UUID `json:"lesson_id" db:"lesson_id"`
	GroupTypeID   uuid.UUID `json:"group_type_id" db:"group_type_id"`
	AvailableFrom time.Time `json:"available_from" db:"available_from"`
}

// Open reports whether the schedule has unlocked at the given instant.
func (s *Schedule) Open(now time.Time) bool {
	return !s.AvailableFrom.After(now)
}

type CreateLessonRequest struct {
	Title            string
	Description      string
	Order            int
	KinescopeVideoID string
	NotionPageID     string
}

type Service struct {
	db    postgres.DB
	clock platform.Clock
}

func NewService(db postgres.DB, clock platform.Clock) *Service {
	if clock == nil {
		clock = platform.SystemClock()
	}
	return &Service{db: db, clock: clock}
}

const lessonColumns = `id, title, description, lesson_order, kinescope_video_id, video_duration, notion_page_id, material_url, is_active, created_at, updated_at`

func scanLesson(row pgx.Row) (*Lesson, error) {
	var l Lesson
	err := row.Scan(&l.ID, &l.Title, &l.Description, &l.Order, &l.KinescopeVideoID,
		&l.VideoDuration, &l.NotionPageID, &l.MaterialURL, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) CreateLesson(ctx context.Context, req CreateLessonRequest) (*Lesson, error) {
	ctx, span := tracer.Start(ctx, "courses.CreateLesson")
	defer span.End()

	query := `
		INSERT INTO lessons (title, description, lesson_order, kinescope_video_id, notion_page_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, NOW(), NOW())
		RETURNING ` + lessonColumns

	lesson, err := scanLesson(s.db.QueryRow(ctx, query,
		req.Title, req.Description, req.Order, req.KinescopeVideoID, req.NotionPageID))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	return lesson, nil
}

func (s *Service) GetLesson(ctx context.Context, id uuid.UUID) (*Lesson, error) {
	ctx, span := tracer.Start(ctx, "courses.GetLesson")
	defer span.End()

	lesson, err := scanLesson(s.db.QueryRow(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1 AND is_active = true`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get lesson %s: %w", id, err)
	}

	return lesson, nil
}

// UpdateVideoDuration stores the duration reported by the video host.
func (s *Service) UpdateVideoDuration(ctx context.Context, id uuid.UUID, seconds int) error {
	ctx, span := tracer.Start(ctx, "courses.UpdateVideoDuration")
	defer span.End()

	result, err := s.db.Exec(ctx,
		`UPDATE lessons SET video_duration = $2, updated_at = NOW() WHERE id = $1`,
		id, seconds)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update video duration for lesson %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lesson %s not found", id)
	}

	return nil
}

// VideoInfoSource reports the duration of a hosted video in seconds.
type VideoInfoSource interface {
	VideoDuration(ctx context.Context, videoID string) (int, error)
}

// SyncVideoInfo refreshes a lesson's video duration from the video host.
// Lessons without a video id are skipped.
func (s *Service) SyncVideoInfo(ctx context.Context, id uuid.UUID, src VideoInfoSource) error {
	ctx, span := tracer.Start(ctx, "courses.SyncVideoInfo")
	defer span.End()

	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return err
	}
	if lesson == nil || lesson.KinescopeVideoID == "" {
		return nil
	}

	seconds, err := src.VideoDuration(ctx, lesson.KinescopeVideoID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to fetch video info for lesson %s: %w", id, err)
	}

	return s.UpdateVideoDuration(ctx, id, seconds)
}

// SetMaterialURL stores the blob-storage URL of the lesson's material file.
func (s *Service) SetMaterialURL(ctx context.Context, id uuid.UUID, url string) error {
	ctx, span := tracer.Start(ctx, "courses.SetMaterialURL")
	defer span.End()

	result, err := s.db.Exec(ctx,
		`UPDATE lessons SET material_url = $2, updated_at = NOW() WHERE id = $1`,
		id, url)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set material url for lesson %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lesson %s not found", id)
	}

	return nil
}

// DeleteLesson soft-deletes a lesson.
func (s *Service) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "courses.DeleteLesson")
	defer span.End()

	result, err := s.db.Exec(ctx,
		`UPDATE lessons SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete lesson %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lesson %s not found", id)
	}

	return nil
}

// ScheduleLesson opens a lesson to a group type from the given time, creating
// or moving the schedule entry.
func (s *Service) ScheduleLesson(ctx context.Context, lessonID, groupTypeID uuid.UUID, availableFrom time.Time) (*Schedule, error) {
	ctx, span := tracer.Start(ctx, "courses.ScheduleLesson")
	defer span.End()

	query := `
		INSERT INTO lesson_schedules (lesson_id, group_type_id, available_from, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (lesson_id, group_type_id)
		DO UPDATE SET available_from = EXCLUDED.available_from, updated_at = NOW()
		RETURNING id, lesson_id, group_type_id, available_from
	`

	var sched Schedule
	err := s.db.QueryRow(ctx, query, lessonID, groupTypeID, availableFrom).Scan(
		&sched.ID, &sched.LessonID, &sched.GroupTypeID, &sched.AvailableFrom)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to schedule lesson %s: %w", lessonID, err)
	}

	return &sched, nil
}

// RemoveSchedule closes a lesson for a group type again.
func (s *Service) RemoveSchedule(ctx context.Context, lessonID, groupTypeID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "courses.RemoveSchedule")
	defer span.End()

	if _, err := s.db.Exec(ctx,
		`DELETE FROM lesson_schedules WHERE lesson_id = $1 AND group_type_id = $2`,
		lessonID, groupTypeID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to remove schedule for lesson %s: %w", lessonID, err)
	}

	return nil
}

// AvailableLessons lists the lessons already open to a group type, in course
// order.
func (s *Service) AvailableLessons(ctx context.Context, groupTypeID uuid.UUID) ([]*Lesson, error) {
	ctx, span := tracer.Start(ctx, "courses.AvailableLessons")
	defer span.End()

	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE is_active = true AND id IN (
			SELECT lesson_id FROM lesson_schedules
			WHERE group_type_id = $1 AND available_from <= $2
		)
		ORDER BY lesson_order
	`

	rows, err := s.db.Query(ctx, query, groupTypeID, s.clock.Now())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list available lessons: %w", err)
	}
	defer rows.Close()

	var result []*Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		result = append(result, lesson)
	}

	return result, rows.Err()
}

// GetSchedule returns the schedule entry for a lesson and group type, or nil.
func (s *Service) GetSchedule(ctx context.Context, lessonID, groupTypeID uuid.UUID) (*Schedule, error) {
	ctx, span := tracer.Start(ctx, "courses.GetSchedule")
	defer span.End()

	var sched Schedule
	err := s.db.QueryRow(ctx, `
		SELECT id, lesson_id, group_type_id, available_from
		FROM lesson_schedules
		WHERE lesson_id = $1 AND group_type_id = $2
	`, lessonID, groupTypeID).Scan(&sched.ID, &sched.LessonID, &sched.GroupTypeID, &sched.AvailableFrom)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get schedule for lesson %s: %w", lessonID, err)
	}

	return &sched, nil
}

// CheckAccess enforces lesson gating for a student's group type. A lesson
// with no schedule entry, or one that has not opened yet, is locked.
func (s *Service) CheckAccess(ctx context.Context, lessonID, groupTypeID uuid.UUID) error {
	sched, err := s.GetSchedule(ctx, lessonID, groupTypeID)
	if err != nil {
		return err
	}
	if sched == nil || !sched.Open(s.clock.Now()) {
		return platform.ErrLessonLocked
	}
	return nil
}
