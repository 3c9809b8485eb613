// Package organizations manages tenants and the memberships that tie users to them.
package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/slug"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/validate"
)

const (
	// fallbackSlug is used when a name has no ASCII letters or digits.
	fallbackSlug = "org"

	// maxCreateAttempts bounds retries when a concurrent signup claims the same slug.
	maxCreateAttempts = 5
)

type Service struct {
	orgs store.OrganizationStore
	now  func() time.Time
}

func NewService(orgs store.OrganizationStore) *Service {
	return &Service{orgs: orgs, now: time.Now}
}

// List returns every organization the user belongs to with the user's role in it.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.OrganizationMembership, error) {
	memberships, err := s.orgs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	if memberships == nil {
		memberships = []*models.OrganizationMembership{}
	}
	return memberships, nil
}

// IsMember reports whether the user holds any role in the organization.
func (s *Service) IsMember(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	memberships, err := s.List(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		if m.ID == orgID {
			return true, nil
		}
	}
	return false, nil
}

// CreateOwned creates an organization named name with userID as its OWNER.
//
// The slug is derived from the name. When it is already in use a random suffix is
// appended, and an insert that loses a race for the slug is retried with a new suffix.
func (s *Service) CreateOwned(ctx context.Context, userID uuid.UUID, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if err := validate.Length("organizationName", name, 2, 255); err != nil {
		return nil, err
	}

	base := slug.Slugify(name)
	if base == "" {
		base = fallbackSlug
	}

	candidate := base
	exists, err := s.orgs.SlugExists(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		candidate = slug.GenerateUnique(base)
	}

	attempt := 0
	org, err := backoff.Retry(ctx, func() (*models.Organization, error) {
		attempt++
		if attempt > 1 {
			candidate = slug.GenerateUnique(base)
		}

		org, err := s.create(ctx, userID, name, candidate)
		if err == nil {
			return org, nil
		}
		if errors.Is(err, store.ErrSlugTaken) {
			log.Debug().Str("slug", candidate).Int("attempt", attempt).Msg("Slug taken, retrying")
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithBackOff(&backoff.ZeroBackOff{}), backoff.WithMaxTries(maxCreateAttempts))
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	log.Info().
		Str("organization_id", org.ID.String()).
		Str("slug", org.Slug).
		Str("owner_id", userID.String()).
		Msg("Created organization")

	return org, nil
}

func (s *Service) create(ctx context.Context, userID uuid.UUID, name, orgSlug string) (*models.Organization, error) {
	now := s.now()
	org := &models.Organization{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		Slug:      orgSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &models.Membership{
		ID:             uuid.Must(uuid.NewV7()),
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           models.RoleOwner,
		CreatedAt:      now,
	}

	if err := s.orgs.CreateWithOwner(ctx, org, owner); err != nil {
		return nil, err
	}
	return org, nil
}

// AddMember grants userID the role in the organization.
func (s *Service) AddMember(ctx context.Context, orgID, userID uuid.UUID, role models.Role) error {
	if !role.Valid() {
		return validate.Fail("role", "must be one of OWNER, ADMIN, MANAGER or MEMBER")
	}

	return s.orgs.AddMember(ctx, &models.Membership{
		ID:             uuid.Must(uuid.NewV7()),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		CreatedAt:      s.now(),
	})
}
