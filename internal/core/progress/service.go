package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/AsliddinWeb/online-course-platform/internal/infra/postgres"
)

var tracer = otel.Tracer("progress-service")

type Progress struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        int64      `json:"user_id" db:"user_id"`
	LessonID      uuid.UUID  `json:"lesson_id" db:"lesson_id"`
	VideoProgress int        `json:"video_progress" db:"video_progress"`
	IsCompleted   bool       `json:"is_completed" db:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Percent converts watched seconds into a 0-100 share of the video duration.
func (p *Progress) Percent(videoDuration int) int {
	if videoDuration == 0 {
		return 0
	}
	pct := p.VideoProgress * 100 / videoDuration
	if pct > 100 {
		return 100
	}
	return pct
}

type Service struct {
	db postgres.DB
}

func NewService(db postgres.DB) *Service {
	return &Service{db: db}
}

const progressColumns = `id, user_id, lesson_id, video_progress, is_completed, completed_at, created_at, updated_at`

func scanProgress(row pgx.Row) (*Progress, error) {
	var p Progress
	err := row.Scan(&p.ID, &p.UserID, &p.LessonID, &p.VideoProgress, &p.IsCompleted,
		&p.CompletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateVideoProgress records how far a student has watched. Progress only
// moves forward: a report behind the stored position is kept as-is so seeking
// backwards never loses progress.
func (s *Service) UpdateVideoProgress(ctx context.Context, userID int64, lessonID uuid.UUID, seconds int) (*Progress, error) {
	ctx, span := tracer.Start(ctx, "progress.UpdateVideoProgress")
	defer span.End()

	query := `
		INSERT INTO user_progress (user_id, lesson_id, video_progress, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET
			video_progress = GREATEST(user_progress.video_progress, EXCLUDED.video_progress),
			updated_at = NOW()
		RETURNING ` + progressColumns

	p, err := scanProgress(s.db.QueryRow(ctx, query, userID, lessonID, seconds))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update progress for user %d lesson %s: %w", userID, lessonID, err)
	}

	return p, nil
}

// MarkCompleted flags the lesson as finished for the student. Already
// completed lessons keep their original completion time.
func (s *Service) MarkCompleted(ctx context.Context, userID int64, lessonID uuid.UUID) (*Progress, error) {
	ctx, span := tracer.Start(ctx, "progress.MarkCompleted")
	defer span.End()

	query := `
		INSERT INTO user_progress (user_id, lesson_id, is_completed, completed_at, created_at, updated_at)
		VALUES ($1, $2, true, NOW(), NOW(), NOW())
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET
			is_completed = true,
			completed_at = COALESCE(user_progress.completed_at, NOW()),
			updated_at = NOW()
		RETURNING ` + progressColumns

	p, err := scanProgress(s.db.QueryRow(ctx, query, userID, lessonID))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to mark lesson %s completed for user %d: %w", lessonID, userID, err)
	}

	return p, nil
}

// Get returns the student's progress for a lesson, or nil when untouched.
func (s *Service) Get(ctx context.Context, userID int64, lessonID uuid.UUID) (*Progress, error) {
	ctx, span := tracer.Start(ctx, "progress.Get")
	defer span.End()

	p, err := scanProgress(s.db.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 AND lesson_id = $2`,
		userID, lessonID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get progress for user %d lesson %s: %w", userID, lessonID, err)
	}

	return p, nil
}

// ListForUser returns all lesson progress rows for a student.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*Progress, error) {
	ctx, span := tracer.Start(ctx, "progress.ListForUser")
	defer span.End()

	rows, err := s.db.Query(ctx,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list progress for user %d: %w", userID, err)
	}
	defer rows.Close()

	var result []*Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

// Reset starts a lesson over for a student.
func (s *Service) Reset(ctx context.Context, userID int64, lessonID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "progress.Reset")
	defer span.End()

	result, err := s.db.Exec(ctx, `
		UPDATE user_progress
		SET video_progress = 0, is_completed = false, completed_at = NULL, updated_at = NOW()
		WHERE user_id = $1 AND lesson_id = $2
	`, userID, lessonID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to reset progress for user %d lesson %s: %w", userID, lessonID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no progress for user %d lesson %s", userID, lessonID)
	}

	return nil
}
