package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant. The slug is unique and never changes after creation.
type Organization struct {
	ID          uuid.UUID // UUIDv7
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Role is a member's role within an organization.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// Membership links a user to an organization. A user holds at most one membership per organization.
type Membership struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           Role
	CreatedAt      time.Time
}

// OrganizationMembership is the read model returned when listing a user's organizations.
type OrganizationMembership struct {
	ID   uuid.UUID
	Name string
	Slug string
	Role Role
}
