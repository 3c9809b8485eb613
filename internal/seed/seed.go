// Package seed loads demo organizations and users.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/organizations"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/validate"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yaml
var demoFixture []byte

type Person struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Organization struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Owner       Person `yaml:"owner"`
}

type User struct {
	Person        `yaml:",inline"`
	Role          models.Role `yaml:"role"`
	Organizations []string    `yaml:"organizations"`
}

// Fixture describes the data to load.
type Fixture struct {
	Password      string         `yaml:"password"`
	Organizations []Organization `yaml:"organizations"`
	Users         []User         `yaml:"users"`
}

// Demo returns the embedded demo fixture.
func Demo() (*Fixture, error) {
	return Parse(bytes.NewReader(demoFixture))
}

func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) Validate() error {
	if err := login.ValidatePassword("password", f.Password); err != nil {
		return err
	}

	slugs := make(map[string]bool, len(f.Organizations))
	for _, o := range f.Organizations {
		if o.Slug == "" || o.Name == "" || o.Owner.Email == "" {
			return fmt.Errorf("organization %q needs a slug, name and owner email", o.Slug)
		}
		slugs[o.Slug] = true
	}

	for _, u := range f.Users {
		if !u.Role.Valid() || u.Role == models.RoleOwner {
			return fmt.Errorf("user %s has invalid role %q", u.Email, u.Role)
		}
		if len(u.Organizations) == 0 {
			return fmt.Errorf("user %s belongs to no organization", u.Email)
		}
		for _, slug := range u.Organizations {
			if !slugs[slug] {
				return fmt.Errorf("user %s references unknown organization %q", u.Email, slug)
			}
		}
	}
	return nil
}

// Summary counts what Load created. Existing rows are reused and not counted.
type Summary struct {
	Users         int
	Organizations int
	Memberships   int
}

type Loader struct {
	users      store.UserStore
	orgs       store.OrganizationStore
	members    *organizations.Service
	bcryptCost int
}

func NewLoader(users store.UserStore, orgs store.OrganizationStore, bcryptCost int) *Loader {
	return &Loader{users: users, orgs: orgs, members: organizations.NewService(orgs), bcryptCost: bcryptCost}
}

// Load creates the fixture's users, organizations and memberships. Running it twice is safe.
func (l *Loader) Load(ctx context.Context, f *Fixture) (*Summary, error) {
	hash, err := login.HashPassword(f.Password, l.bcryptCost)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	orgIDs := make(map[string]uuid.UUID, len(f.Organizations))

	for _, o := range f.Organizations {
		owner, err := l.ensureUser(ctx, o.Owner, hash, summary)
		if err != nil {
			return nil, err
		}

		org, err := l.orgs.GetBySlug(ctx, o.Slug)
		switch {
		case err == nil:
			if err := l.ensureMember(ctx, org.ID, owner.ID, models.RoleOwner, summary); err != nil {
				return nil, err
			}
		case errors.Is(err, store.ErrOrganizationNotFound):
			now := time.Now()
			org = &models.Organization{
				ID:          uuid.Must(uuid.NewV7()),
				Name:        o.Name,
				Slug:        o.Slug,
				Description: o.Description,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			membership := &models.Membership{
				ID:             uuid.Must(uuid.NewV7()),
				UserID:         owner.ID,
				OrganizationID: org.ID,
				Role:           models.RoleOwner,
				CreatedAt:      now,
			}
			if err := l.orgs.CreateWithOwner(ctx, org, membership); err != nil {
				return nil, fmt.Errorf("failed to create organization %s: %w", o.Slug, err)
			}
			summary.Organizations++
			summary.Memberships++
		default:
			return nil, fmt.Errorf("failed to look up organization %s: %w", o.Slug, err)
		}

		orgIDs[o.Slug] = org.ID
		log.Info().Str("slug", o.Slug).Str("owner", owner.Email).Msg("Seeded organization")
	}

	for _, u := range f.Users {
		user, err := l.ensureUser(ctx, u.Person, hash, summary)
		if err != nil {
			return nil, err
		}
		for _, slug := range u.Organizations {
			if err := l.ensureMember(ctx, orgIDs[slug], user.ID, u.Role, summary); err != nil {
				return nil, err
			}
		}
		log.Debug().Str("email", user.Email).Str("role", string(u.Role)).Strs("organizations", u.Organizations).Msg("Seeded user")
	}

	return summary, nil
}

func (l *Loader) ensureUser(ctx context.Context, p Person, hash string, summary *Summary) (*models.User, error) {
	email := validate.NormalizeEmail(p.Email)

	user, err := l.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up %s: %w", email, err)
	}

	now := time.Now()
	user = &models.User{
		ID:            uuid.Must(uuid.NewV7()),
		Name:          p.Name,
		Email:         email,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	account := &models.Account{
		ID:           uuid.Must(uuid.NewV7()),
		UserID:       user.ID,
		ProviderID:   models.ProviderCredential,
		AccountID:    user.ID.String(),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.users.CreateWithCredential(ctx, user, account); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", email, err)
	}

	summary.Users++
	return user, nil
}

func (l *Loader) ensureMember(ctx context.Context, orgID, userID uuid.UUID, role models.Role, summary *Summary) error {
	err := l.members.AddMember(ctx, orgID, userID, role)
	switch {
	case err == nil:
		summary.Memberships++
		return nil
	case errors.Is(err, store.ErrMembershipExists):
		return nil
	}
	return fmt.Errorf("failed to add membership: %w", err)
}
