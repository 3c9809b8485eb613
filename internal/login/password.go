package login

import (
	"fmt"

	"github.com/wolfeidau/jokko/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted at signup and reset.
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// ValidatePassword enforces the password policy.
func ValidatePassword(field, password string) error {
	if err := validate.Length(field, password, MinPasswordLength, 0); err != nil {
		return err
	}
	if len(password) > MaxPasswordBytes {
		return validate.Fail(field, "must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// HashPassword returns a bcrypt hash of password. A cost of zero uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
