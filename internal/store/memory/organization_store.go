package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
// Memberships are kept in insertion order so listings are stable.
type OrganizationStore struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization // org_id -> Organization
	slugs         map[string]uuid.UUID               // slug -> org_id
	memberships   []*models.Membership
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{
		organizations: make(map[uuid.UUID]*models.Organization),
		slugs:         make(map[string]uuid.UUID),
	}
}

func (s *OrganizationStore) CreateWithOwner(ctx context.Context, org *models.Organization, owner *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slugs[org.Slug]; exists {
		return store.ErrSlugTaken
	}

	o := *org
	m := *owner
	s.organizations[org.ID] = &o
	s.slugs[org.Slug] = org.ID
	s.memberships = append(s.memberships, &m)

	return nil
}

func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgID, exists := s.slugs[slug]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *s.organizations[orgID]
	return &clone, nil
}

func (s *OrganizationStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.slugs[slug]
	return exists, nil
}

func (s *OrganizationStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.OrganizationMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.OrganizationMembership
	for _, m := range s.memberships {
		if m.UserID != userID {
			continue
		}
		org, exists := s.organizations[m.OrganizationID]
		if !exists {
			continue
		}
		result = append(result, &models.OrganizationMembership{
			ID:   org.ID,
			Name: org.Name,
			Slug: org.Slug,
			Role: m.Role,
		})
	}

	return result, nil
}

func (s *OrganizationStore) AddMember(ctx context.Context, membership *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[membership.OrganizationID]; !exists {
		return store.ErrOrganizationNotFound
	}

	for _, m := range s.memberships {
		if m.UserID == membership.UserID && m.OrganizationID == membership.OrganizationID {
			return store.ErrMembershipExists
		}
	}

	clone := *membership
	s.memberships = append(s.memberships, &clone)
	return nil
}

func (s *OrganizationStore) RemoveMemberships(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orgIDs []uuid.UUID
	s.memberships = slices.DeleteFunc(s.memberships, func(m *models.Membership) bool {
		if m.UserID != userID {
			return false
		}
		orgIDs = append(orgIDs, m.OrganizationID)
		return true
	})

	return orgIDs, nil
}

func (s *OrganizationStore) CountMembers(ctx context.Context, orgID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.memberships {
		if m.OrganizationID == orgID {
			count++
		}
	}
	return count, nil
}

func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	delete(s.slugs, org.Slug)
	delete(s.organizations, orgID)
	s.memberships = slices.DeleteFunc(s.memberships, func(m *models.Membership) bool {
		return m.OrganizationID == orgID
	})

	return nil
}
