package quizzes

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

var tracer = otel.Tracer("quizzes-service")

type Quiz struct {
	ID           uuid.UUID `json:"id" db:"id"`
	LessonID     uuid.UUID `json:"lesson_id" db:"lesson_id"`
	Title        string    `json:"title" db:"title"`
	PassingScore int       `json:"passing_score" db:"passing_score"`
	MaxAttempts  int       `json:"max_attempts" db:"max_attempts"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Question struct {
	ID      uuid.UUID `json:"id" db:"id"`
	QuizID  uuid.UUID `json:"quiz_id" db:"quiz_id"`
	Text    string    `json:"text" db:"text"`
	Order   int       `json:"order" db:"question_order"`
	Answers []*Answer `json:"answers,omitempty"`
}

type Answer struct {
	ID         uuid.UUID `json:"id" db:"id"`
	QuestionID uuid.UUID `json:"question_id" db:"question_id"`
	Text       string    `json:"text" db:"text"`
	IsCorrect  bool      `json:"is_correct" db:"is_correct"`
}

type Attempt struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	QuizID    uuid.UUID `json:"quiz_id" db:"quiz_id"`
	Score     int       `json:"score" db:"score"`
	IsPassed  bool      `json:"is_passed" db:"is_passed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Score computes the percentage of questions answered with the correct
// answer id. Unanswered questions count as wrong.
func Score(questions []*Question, submitted map[uuid.UUID]uuid.UUID) int {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		chosen, ok := submitted[q.ID]
		if !ok {
			continue
		}
		for _, a := range q.Answers {
			if a.IsCorrect && a.ID == chosen {
				correct++
				break
			}
		}
	}
	return correct * 100 / len(questions)
}

type Service struct {
	db postgres.DB
}

func NewService(db postgres.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateQuiz(ctx context.Context, lessonID uuid.UUID, title string, passingScore, maxAttempts int) (*Quiz, error) {
	ctx, span := tracer.Start(ctx, "quizzes.CreateQuiz")
	defer span.End()

	query := `
		INSERT INTO quizzes (lesson_id, title, passing_score, max_attempts, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, NOW(), NOW())
		RETURNING id, lesson_id, title, passing_score, max_attempts, is_active, created_at, updated_at
	`

	var q Quiz
	err := s.db.QueryRow(ctx, query, lessonID, title, passingScore, maxAttempts).Scan(
		&q.ID, &q.LessonID, &q.Title, &q.PassingScore, &q.MaxAttempts, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	return &q, nil
}

func (s *Service) GetQuiz(ctx context.Context, id uuid.UUID) (*Quiz, error) {
	ctx, span := tracer.Start(ctx, "quizzes.GetQuiz")
	defer span.End()

	var q Quiz
	err := s.db.QueryRow(ctx, `
		SELECT id, lesson_id, title, passing_score, max_attempts, is_active, created_at, updated_at
		FROM quizzes
		WHERE id = $1 AND is_active = true
	`, id).Scan(&q.ID, &q.LessonID, &q.Title, &q.PassingScore, &q.MaxAttempts, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get quiz %s: %w", id, err)
	}

	return &q, nil
}

func (s *Service) AddQuestion(ctx context.Context, quizID uuid.UUID, text string, order int) (*Question, error) {
	ctx, span := tracer.Start(ctx, "quizzes.AddQuestion")
	defer span.End()

	var q Question
	err := s.db.QueryRow(ctx, `
		INSERT INTO questions (quiz_id, text, question_order, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, quiz_id, text, question_order
	`, quizID, text, order).Scan(&q.ID, &q.QuizID, &q.Text, &q.Order)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to add question: %w", err)
	}

	return &q, nil
}

func (s *Service) AddAnswer(ctx context.Context, questionID uuid.UUID, text string, isCorrect bool) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "quizzes.AddAnswer")
	defer span.End()

	var a Answer
	err := s.db.QueryRow(ctx, `
		INSERT INTO answers (question_id, text, is_correct, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, question_id, text, is_correct
	`, questionID, text, isCorrect).Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to add answer: %w", err)
	}

	return &a, nil
}

// SetCorrectAnswer marks one answer of a question as correct and the rest as
// wrong, in a single transaction.
func (s *Service) SetCorrectAnswer(ctx context.Context, questionID, answerID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "quizzes.SetCorrectAnswer")
	defer span.End()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		`UPDATE answers SET is_correct = false, updated_at = NOW() WHERE question_id = $1`,
		questionID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear correct answers: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE answers SET is_correct = true, updated_at = NOW() WHERE id = $1 AND question_id = $2`,
		answerID, questionID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set correct answer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("answer %s not found in question %s", answerID, questionID)
	}

	return tx.Commit(ctx)
}

// Questions loads all questions of a quiz with their answers, in order.
func (s *Service) Questions(ctx context.Context, quizID uuid.UUID) ([]*Question, error) {
	ctx, span := tracer.Start(ctx, "quizzes.Questions")
	defer span.End()

	rows, err := s.db.Query(ctx, `
		SELECT id, quiz_id, text, question_order
		FROM questions
		WHERE quiz_id = $1
		ORDER BY question_order
	`, quizID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []*Question
	byID := make(map[uuid.UUID]*Question)
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Order); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, &q)
		byID[q.ID] = &q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	answerRows, err := s.db.Query(ctx, `
		SELECT a.id, a.question_id, a.text, a.is_correct
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE q.quiz_id = $1
	`, quizID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var a Answer
		if err := answerRows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if q, ok := byID[a.QuestionID]; ok {
			q.Answers = append(q.Answers, &a)
		}
	}

	return questions, answerRows.Err()
}

// AttemptCount returns how many attempts the student has already made.
func (s *Service) AttemptCount(ctx context.Context, userID int64, quizID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2`,
		userID, quizID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// SubmitAttempt scores the submitted answers and records the attempt.
// Students over the attempt cap are rejected with access_denied.
func (s *Service) SubmitAttempt(ctx context.Context, userID int64, quizID uuid.UUID, submitted map[uuid.UUID]uuid.UUID) (*Attempt, error) {
	ctx, span := tracer.Start(ctx, "quizzes.SubmitAttempt")
	defer span.End()

	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, fmt.Errorf("quiz %s not found", quizID)
	}

	attempts, err := s.AttemptCount(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if attempts >= quiz.MaxAttempts {
		return nil, platform.NewError(platform.CodeAccessDenied, "no attempts left for this quiz")
	}

	questions, err := s.Questions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	score := Score(questions, submitted)

	var attempt Attempt
	err = s.db.QueryRow(ctx, `
		INSERT INTO quiz_attempts (user_id, quiz_id, score, is_passed, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, quiz_id, score, is_passed, created_at
	`, userID, quizID, score, score >= quiz.PassingScore).Scan(
		&attempt.ID, &attempt.UserID, &attempt.QuizID, &attempt.Score, &attempt.IsPassed, &attempt.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	return &attempt, nil
}
