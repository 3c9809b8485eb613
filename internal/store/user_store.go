package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
)

// UserStore persists users and their authentication accounts.
type UserStore interface {
	// CreateWithCredential inserts the user and its credential account atomically.
	// Returns ErrUserAlreadyExists if the email is already registered.
	CreateWithCredential(ctx context.Context, user *models.User, account *models.Account) error

	// Get returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail looks up a user by normalized email.
	// Returns ErrUserNotFound if no user has that email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetCredential returns the credential account for a user.
	// Returns ErrAccountNotFound if the user has no credential account.
	GetCredential(ctx context.Context, userID uuid.UUID) (*models.Account, error)

	// UpdatePassword replaces the hash on every credential account of the user
	// and returns the number of accounts updated.
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) (int, error)

	// Delete removes the user. Accounts, sessions and reset tokens go with it.
	Delete(ctx context.Context, userID uuid.UUID) error
}
