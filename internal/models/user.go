package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderCredential identifies email/password accounts.
const ProviderCredential = "credential"

// User is a person who can sign in. Email is unique and stored lower-cased.
type User struct {
	ID            uuid.UUID // UUIDv7
	Name          string
	Email         string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Account links a user to an authentication provider.
// For the credential provider AccountID equals the user ID and PasswordHash holds a bcrypt hash.
type Account struct {
	ID           uuid.UUID // UUIDv7
	UserID       uuid.UUID // FK to users
	ProviderID   string
	AccountID    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
