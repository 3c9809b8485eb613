package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
)

// OrganizationStore persists organizations and their memberships.
type OrganizationStore interface {
	// CreateWithOwner inserts the organization and the owner's membership atomically.
	// Returns ErrSlugTaken if the slug is already in use.
	CreateWithOwner(ctx context.Context, org *models.Organization, owner *models.Membership) error

	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)

	// ListByUser returns the organizations the user belongs to, with the user's role in each.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.OrganizationMembership, error)

	// AddMember returns ErrMembershipExists if the user already belongs to the organization.
	AddMember(ctx context.Context, membership *models.Membership) error

	// RemoveMemberships deletes every membership of the user and returns the affected organization IDs.
	RemoveMemberships(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	CountMembers(ctx context.Context, orgID uuid.UUID) (int, error)

	// Delete removes the organization and its memberships.
	Delete(ctx context.Context, orgID uuid.UUID) error
}
