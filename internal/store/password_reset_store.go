package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
)

// PasswordResetStore persists password reset tokens.
type PasswordResetStore interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error

	// Redeem marks the token used and sets passwordHash on the owner's credential account
	// as one unit, so a token is redeemed at most once and is never spent without the
	// password changing. Returns ErrTokenNotFound for unknown, used or expired tokens and
	// ErrAccountNotFound when the owner has no credential account; neither changes anything.
	Redeem(ctx context.Context, token string, now time.Time, passwordHash string) (*models.PasswordResetToken, error)

	DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteExpired purges tokens that are used or expired at now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
