package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a user's authenticated session.
// The cookie carries a signed reference to the session ID, all session data lives server-side.
type Session struct {
	SessionID uuid.UUID // UUIDv7
	UserID    uuid.UUID // Who is logged in

	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time

	// Optional audit metadata
	UserAgent string
	IPAddress string
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the session has expired at the given instant.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
