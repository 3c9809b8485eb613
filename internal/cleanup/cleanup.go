// Package cleanup removes test accounts and everything they own.
package cleanup

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/validate"
)

var ErrEmailRequired = errors.New("email is required")

type Stores struct {
	Users          store.UserStore
	Sessions       store.SessionStore
	PasswordResets store.PasswordResetStore
	Organizations  store.OrganizationStore
}

// Report summarises what ByEmail removed.
type Report struct {
	OrganizationsDeleted int `json:"organizationsDeleted"`
	SessionsDeleted      int `json:"sessionsDeleted"`
	TokensDeleted        int `json:"tokensDeleted"`
}

type Service struct {
	stores Stores
}

func NewService(stores Stores) *Service {
	return &Service{stores: stores}
}

// ByEmail deletes the user with that email. Organizations left without any member are
// deleted too; organizations shared with other users are kept.
// Returns store.ErrUserNotFound for unknown addresses.
func (s *Service) ByEmail(ctx context.Context, email string) (*Report, error) {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	orgIDs, err := s.stores.Organizations.RemoveMemberships(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove memberships: %w", err)
	}

	for _, orgID := range orgIDs {
		members, err := s.stores.Organizations.CountMembers(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to count members: %w", err)
		}
		if members > 0 {
			continue
		}
		if err := s.stores.Organizations.Delete(ctx, orgID); err != nil && !errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, fmt.Errorf("failed to delete organization: %w", err)
		}
		report.OrganizationsDeleted++
	}

	if report.SessionsDeleted, err = s.stores.Sessions.DeleteByUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to delete sessions: %w", err)
	}
	if report.TokensDeleted, err = s.stores.PasswordResets.DeleteByUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to delete reset tokens: %w", err)
	}
	if err := s.stores.Users.Delete(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Int("organizations_deleted", report.OrganizationsDeleted).
		Msg("Cleaned up user")

	return report, nil
}
