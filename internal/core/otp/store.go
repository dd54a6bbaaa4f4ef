package otp

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

var tracer = otel.Tracer("otp-store")

// Store manages the single-active-code invariant per user: issuing a code
// invalidates every previously unused code for that user inside one
// transaction, so at no instant are two codes both redeemable.
type Store struct {
	db     postgres.DB
	clock  platform.Clock
	expiry time.Duration
}

func NewStore(db postgres.DB, clock platform.Clock, expiry time.Duration) *Store {
	if clock == nil {
		clock = platform.SystemClock()
	}
	return &Store{db: db, clock: clock, expiry: expiry}
}

// Expiry returns the configured validity window.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

const otpColumns = `id, user_id, code, expires_at, is_used, created_at, updated_at`

func scanOTP(row pgx.Row) (*OTP, error) {
	var o OTP
	err := row.Scan(&o.ID, &o.UserID, &o.Code, &o.ExpiresAt, &o.IsUsed, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Issue invalidates all unused codes for the user and creates a fresh one.
// Both steps run in a single transaction.
func (s *Store) Issue(ctx context.Context, userID int64) (*OTP, error) {
	ctx, span := tracer.Start(ctx, "otp.Issue")
	defer span.End()

	code, err := GenerateCode()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to begin otp transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		`UPDATE otps SET is_used = true, updated_at = NOW() WHERE user_id = $1 AND is_used = false`,
		userID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to invalidate previous otps for user %d: %w", userID, err)
	}

	now := s.clock.Now()
	issued, err := scanOTP(tx.QueryRow(ctx,
		`INSERT INTO otps (user_id, code, expires_at, is_used, created_at, updated_at)
		 VALUES ($1, $2, $3, false, $4, $4)
		 RETURNING `+otpColumns,
		userID, code, now.Add(s.expiry), now))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create otp for user %d: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to commit otp transaction: %w", err)
	}

	return issued, nil
}

// Active returns the most recently created unused code for the user, or nil.
// There is deliberately no lookup by code value: codes are only ever matched
// inside the scope of a known user.
func (s *Store) Active(ctx context.Context, userID int64) (*OTP, error) {
	ctx, span := tracer.Start(ctx, "otp.Active")
	defer span.End()

	query := `
		SELECT ` + otpColumns + `
		FROM otps
		WHERE user_id = $1 AND is_used = false
		ORDER BY created_at DESC
		LIMIT 1
	`

	active, err := scanOTP(s.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get active otp for user %d: %w", userID, err)
	}

	return active, nil
}

// Consume flags a code as used. Consuming an already-used code is a no-op at
// this layer; rejecting the second verification attempt is the orchestrator's
// job.
func (s *Store) Consume(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "otp.Consume")
	defer span.End()

	if _, err := s.db.Exec(ctx,
		`UPDATE otps SET is_used = true, updated_at = NOW() WHERE id = $1`,
		id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to consume otp %s: %w", id, err)
	}

	return nil
}
