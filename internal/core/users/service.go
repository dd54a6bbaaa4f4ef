package users

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

var tracer = otel.Tracer("users-service")

const (
	RoleStudent    = "student"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

type User struct {
	ID             int64      `json:"id" db:"id"`
	PhoneNumber    string     `json:"phone_number" db:"phone_number"`
	FullName       string     `json:"full_name" db:"full_name"`
	TelegramChatID *int64     `json:"telegram_chat_id" db:"telegram_chat_id"`
	Role           string     `json:"role" db:"role"`
	GroupID        *uuid.UUID `json:"group_id" db:"group_id"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

type CreateStudentRequest struct {
	PhoneNumber string
	FullName    string
	GroupID     *uuid.UUID
}

type Service struct {
	db postgres.DB
}

func NewService(db postgres.DB) *Service {
	return &Service{db: db}
}

const userColumns = `id, phone_number, full_name, telegram_chat_id, role, group_id, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.PhoneNumber,
		&user.FullName,
		&user.TelegramChatID,
		&user.Role,
		&user.GroupID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByPhone returns the active user owning the phone number, or nil when none.
func (s *Service) GetByPhone(ctx context.Context, phoneNumber string) (*User, error) {
	ctx, span := tracer.Start(ctx, "users.GetByPhone")
	defer span.End()

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE phone_number = $1 AND is_active = true
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, phoneNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return user, nil
}

// GetByID returns the active user with the given id, or nil when none.
func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	ctx, span := tracer.Start(ctx, "users.GetByID")
	defer span.End()

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND is_active = true
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user by id %d: %w", userID, err)
	}

	return user, nil
}

// GetByChatID returns the active user bound to the Telegram chat, or nil when none.
func (s *Service) GetByChatID(ctx context.Context, chatID int64) (*User, error) {
	ctx, span := tracer.Start(ctx, "users.GetByChatID")
	defer span.End()

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE telegram_chat_id = $1 AND is_active = true
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, chatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user by chat_id %d: %w", chatID, err)
	}

	return user, nil
}

// BindChat persists the Telegram chat id on the user record. Rebinding the
// same chat to the same user is a no-op upsert.
func (s *Service) BindChat(ctx context.Context, userID int64, chatID int64) error {
	ctx, span := tracer.Start(ctx, "users.BindChat")
	defer span.End()

	query := `
		UPDATE users
		SET telegram_chat_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.db.Exec(ctx, query, userID, chatID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to bind chat %d to user %d: %w", chatID, userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with id %d not found", userID)
	}

	return nil
}

// CreateStudent registers a new student account.
func (s *Service) CreateStudent(ctx context.Context, req CreateStudentRequest) (*User, error) {
	ctx, span := tracer.Start(ctx, "users.CreateStudent")
	defer span.End()

	query := `
		INSERT INTO users (phone_number, full_name, role, group_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRow(ctx, query, req.PhoneNumber, req.FullName, RoleStudent, req.GroupID))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	return user, nil
}

// CreateAdmin registers a new admin account.
func (s *Service) CreateAdmin(ctx context.Context, phoneNumber, fullName string, super bool) (*User, error) {
	ctx, span := tracer.Start(ctx, "users.CreateAdmin")
	defer span.End()

	role := RoleAdmin
	if super {
		role = RoleSuperAdmin
	}

	query := `
		INSERT INTO users (phone_number, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, true, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRow(ctx, query, phoneNumber, fullName, role))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return user, nil
}

// UpdateFullName renames a user.
func (s *Service) UpdateFullName(ctx context.Context, userID int64, fullName string) error {
	ctx, span := tracer.Start(ctx, "users.UpdateFullName")
	defer span.End()

	result, err := s.db.Exec(ctx,
		`UPDATE users SET full_name = $2, updated_at = NOW() WHERE id = $1`,
		userID, fullName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with id %d not found", userID)
	}

	return nil
}

// AssignGroup moves a student into a group.
func (s *Service) AssignGroup(ctx context.Context, userID int64, groupID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "users.AssignGroup")
	defer span.End()

	result, err := s.db.Exec(ctx,
		`UPDATE users SET group_id = $2, updated_at = NOW() WHERE id = $1`,
		userID, groupID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to assign group to user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with id %d not found", userID)
	}

	return nil
}

// Deactivate soft-deletes a user. Deactivated accounts can no longer log in.
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "users.Deactivate")
	defer span.End()

	result, err := s.db.Exec(ctx,
		`UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1`,
		userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to deactivate user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with id %d not found", userID)
	}

	return nil
}

// ListByGroup returns all active students in the group.
func (s *Service) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*User, error) {
	ctx, span := tracer.Start(ctx, "users.ListByGroup")
	defer span.End()

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE group_id = $1 AND role = $2 AND is_active = true
		ORDER BY full_name
	`

	rows, err := s.db.Query(ctx, query, groupID, RoleStudent)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list students in group %s: %w", groupID, err)
	}
	defer rows.Close()

	var result []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, user)
	}

	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating over users: %w", err)
	}

	return result, nil
}
