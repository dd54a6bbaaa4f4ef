package otp

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CodeLength is the number of digits in a generated code.
const CodeLength = 6

// OTP is a one-time login code. Records are never deleted, only flagged as
// used, so the table doubles as a login-attempt history.
type OTP struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Code      string    `json:"code" db:"code"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IsUsed    bool      `json:"is_used" db:"is_used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Valid reports whether the code can still be redeemed at the given instant.
func (o *OTP) Valid(now time.Time) bool {
	return !o.IsUsed && now.Before(o.ExpiresAt)
}

// GenerateCode returns a uniformly random numeric code. Source bytes of 250
// and above are discarded before the digit mapping so each digit is exactly
// equiprobable.
func GenerateCode() (string, error) {
	digits := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)
	for len(digits) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate otp code: %w", err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			digits = append(digits, '0'+b%10)
			if len(digits) == CodeLength {
				break
			}
		}
	}
	return string(digits), nil
}
