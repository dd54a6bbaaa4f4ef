package groups

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

var tracer = otel.Tracer("groups-service")

// GroupType is a cohort tier (for example "7.0 A" or "Premium"); every group
// of the same type sees the same lesson schedule.
type GroupType struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Group struct {
	ID          uuid.UUID `json:"id" db:"id"`
	GroupTypeID uuid.UUID `json:"group_type_id" db:"group_type_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Service struct {
	db postgres.DB
}

func NewService(db postgres.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateGroupType(ctx context.Context, name, description string) (*GroupType, error) {
	ctx, span := tracer.Start(ctx, "groups.CreateGroupType")
	defer span.End()

	query := `
		INSERT INTO group_types (name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, true, NOW(), NOW())
		RETURNING id, name, description, is_active, created_at, updated_at
	`

	var gt GroupType
	err := s.db.QueryRow(ctx, query, name, description).Scan(
		&gt.ID, &gt.Name, &gt.Description, &gt.IsActive, &gt.CreatedAt, &gt.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create group type: %w", err)
	}

	return &gt, nil
}

func (s *Service) GetGroupType(ctx context.Context, id uuid.UUID) (*GroupType, error) {
	ctx, span := tracer.Start(ctx, "groups.GetGroupType")
	defer span.End()

	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM group_types
		WHERE id = $1 AND is_active = true
	`

	var gt GroupType
	err := s.db.QueryRow(ctx, query, id).Scan(
		&gt.ID, &gt.Name, &gt.Description, &gt.IsActive, &gt.CreatedAt, &gt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get group type %s: %w", id, err)
	}

	return &gt, nil
}

func (s *Service) ListGroupTypes(ctx context.Context) ([]*GroupType, error) {
	ctx, span := tracer.Start(ctx, "groups.ListGroupTypes")
	defer span.End()

	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM group_types
		WHERE is_active = true
		ORDER BY name
	`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list group types: %w", err)
	}
	defer rows.Close()

	var result []*GroupType
	for rows.Next() {
		var gt GroupType
		if err := rows.Scan(&gt.ID, &gt.Name, &gt.Description, &gt.IsActive, &gt.CreatedAt, &gt.UpdatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan group type: %w", err)
		}
		result = append(result, &gt)
	}

	return result, rows.Err()
}

func (s *Service) CreateGroup(ctx context.Context, groupTypeID uuid.UUID, name, description string) (*Group, error) {
	ctx, span := tracer.Start(ctx, "groups.CreateGroup")
	defer span.End()

	query := `
		INSERT INTO groups (group_type_id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, true, NOW(), NOW())
		RETURNING id, group_type_id, name, description, is_active, created_at, updated_at
	`

	var g Group
	err := s.db.QueryRow(ctx, query, groupTypeID, name, description).Scan(
		&g.ID, &g.GroupTypeID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return &g, nil
}

func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	ctx, span := tracer.Start(ctx, "groups.GetGroup")
	defer span.End()

	query := `
		SELECT id, group_type_id, name, description, is_active, created_at, updated_at
		FROM groups
		WHERE id = $1 AND is_active = true
	`

	var g Group
	err := s.db.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.GroupTypeID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get group %s: %w", id, err)
	}

	return &g, nil
}

func (s *Service) ListGroups(ctx context.Context, groupTypeID uuid.UUID) ([]*Group, error) {
	ctx, span := tracer.Start(ctx, "groups.ListGroups")
	defer span.End()

	rows, err := s.db.Query(ctx, `
		SELECT id, group_type_id, name, description, is_active, created_at, updated_at
		FROM groups
		WHERE group_type_id = $1 AND is_active = true
		ORDER BY name
	`, groupTypeID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var result []*Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.GroupTypeID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		result = append(result, &g)
	}

	return result, rows.Err()
}

// Deactivate soft-deletes a group. Students keep their membership pointer;
// they just stop receiving new scheduled lessons.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "groups.Deactivate")
	defer span.End()

	result, err := s.db.Exec(ctx,
		`UPDATE groups SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to deactivate group %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %s not found", id)
	}

	return nil
}
