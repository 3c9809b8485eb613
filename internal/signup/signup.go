// Package signup registers a user and creates the organization they own.
package signup

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/organizations"
	"github.com/wolfeidau/jokko/internal/telemetry"
	"github.com/wolfeidau/jokko/internal/validate"
)

// ErrMissingFields is returned when any input field is empty.
var ErrMissingFields = errors.New("missing required fields")

type Request struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organizationName"`
}

type Result struct {
	Identity *login.Identity
	// Organization is nil when the user was created but the organization was not.
	Organization *models.Organization
}

// OrganizationCreator is the slice of organizations.Service signup relies on.
type OrganizationCreator interface {
	CreateOwned(ctx context.Context, userID uuid.UUID, name string) (*models.Organization, error)
}

type Service struct {
	gateway login.Gateway
	orgs    OrganizationCreator
}

func NewService(gateway login.Gateway, orgs OrganizationCreator) *Service {
	return &Service{gateway: gateway, orgs: orgs}
}

var _ OrganizationCreator = (*organizations.Service)(nil)

// Signup validates the request, creates the identity and then the owned organization.
//
// A failure while creating the organization does not fail the signup: the user and
// session already exist, so the error is logged and counted and Result.Organization is nil.
func (s *Service) Signup(ctx context.Context, req Request, meta login.RequestMeta) (*Result, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	identity, err := s.gateway.CreateIdentity(ctx, login.NewIdentity{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Meta:     meta,
	})
	if err != nil {
		return nil, err
	}

	metrics := telemetry.GetMetrics()
	metrics.SignupsTotal.Add(ctx, 1)

	org, err := s.orgs.CreateOwned(ctx, identity.User.ID, req.OrganizationName)
	if err != nil {
		metrics.SignupOrganizationFailures.Add(ctx, 1)
		log.Error().Err(err).
			Str("user_id", identity.User.ID.String()).
			Str("organization_name", req.OrganizationName).
			Msg("Failed to create organization during signup")
		return &Result{Identity: identity}, nil
	}

	return &Result{Identity: identity, Organization: org}, nil
}

func validateRequest(req *Request) error {
	if req.Name == "" || req.Email == "" || req.Password == "" || req.OrganizationName == "" {
		return ErrMissingFields
	}

	req.Name = strings.TrimSpace(req.Name)
	req.OrganizationName = strings.TrimSpace(req.OrganizationName)

	if err := validate.Length("name", req.Name, 1, 255); err != nil {
		return err
	}
	if _, err := validate.Email("email", req.Email); err != nil {
		return err
	}
	if err := login.ValidatePassword("password", req.Password); err != nil {
		return err
	}
	return validate.Length("organizationName", req.OrganizationName, 2, 255)
}
