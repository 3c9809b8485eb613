package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
)

// SessionStore persists server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error

	// Get returns ErrSessionNotFound or ErrSessionExpired when the session can't be used.
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)

	UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error

	// Delete removes a single session (sign out).
	Delete(ctx context.Context, sessionID uuid.UUID) error

	// DeleteByUser removes every session of a user and returns how many were removed.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteExpired purges expired sessions.
	DeleteExpired(ctx context.Context) (int, error)
}
