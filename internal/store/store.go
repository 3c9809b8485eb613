// Package store defines the persistence interfaces used by the application services.
// Implementations live in the memory and postgres subpackages.
package store

import "errors"

// Sentinel errors shared by every store implementation.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrTokenNotFound        = errors.New("reset token not found or no longer valid")
	ErrTokenExists          = errors.New("reset token already exists")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSlugTaken            = errors.New("organization slug already taken")
	ErrMembershipExists     = errors.New("membership already exists")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)
