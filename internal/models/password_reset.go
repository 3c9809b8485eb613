package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use secret emailed to a user.
type PasswordResetToken struct {
	ID        uuid.UUID // UUIDv7
	Token     string    // 64 hex characters
	UserID    uuid.UUID
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// ValidAt reports whether the token can still be redeemed at now.
func (t *PasswordResetToken) ValidAt(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
