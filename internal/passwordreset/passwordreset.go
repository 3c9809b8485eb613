// Package passwordreset issues emailed single-use tokens and redeems them for a new password.
package passwordreset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/mail"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/telemetry"
	"github.com/wolfeidau/jokko/internal/validate"
)

const (
	DefaultTTL = time.Hour

	tokenBytes = 32
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrEmailRequired = errors.New("email is required")
	ErrMissingFields = errors.New("token and password are required")
	ErrSendFailed    = errors.New("failed to send email")
	ErrNoCredential  = errors.New("user has no password credential")
)

// SessionRevoker ends every session of a user once their password changes.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) (int, error)
}

type Config struct {
	// BaseURL is the public origin used to build the reset link.
	BaseURL    string
	TTL        time.Duration
	BcryptCost int
}

type Service struct {
	users    store.UserStore
	tokens   store.PasswordResetStore
	sessions SessionRevoker
	mailer   mail.Mailer
	cfg      Config
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(users store.UserStore, tokens store.PasswordResetStore, sessions SessionRevoker, mailer mail.Mailer, cfg Config, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	s := &Service{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset emails a reset link when the address belongs to a user.
// Unknown addresses succeed silently so callers can't probe for accounts.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug().Msg("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	value, err := newToken()
	if err != nil {
		return err
	}

	now := s.now()
	token := &models.PasswordResetToken{
		ID:        uuid.Must(uuid.NewV7()),
		Token:     value,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	msg, err := mail.RenderPasswordReset(user.Email, mail.PasswordResetData{
		UserName:  user.Name,
		ResetLink: s.ResetLink(value),
		ExpiresIn: humanDuration(s.cfg.TTL),
	})
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to send password reset email")
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	telemetry.GetMetrics().PasswordResetsRequested.Add(ctx, 1)
	log.Info().Str("user_id", user.ID.String()).Msg("Password reset email sent")

	return nil
}

// ResetLink is the URL emailed to the user for a token.
func (s *Service) ResetLink(token string) string {
	return s.cfg.BaseURL + "/reset-password?token=" + token
}

// Redeem spends the token and replaces the user's password in one store call;
// when that fails the token stays redeemable.
// Unknown, used and expired tokens all yield ErrInvalidToken.
func (s *Service) Redeem(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrMissingFields
	}
	if err := login.ValidatePassword("password", newPassword); err != nil {
		return err
	}

	hash, err := login.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	consumed, err := s.tokens.Redeem(ctx, token, s.now(), hash)
	switch {
	case errors.Is(err, store.ErrTokenNotFound):
		telemetry.GetMetrics().PasswordResetRedeemFailures.Add(ctx, 1)
		return ErrInvalidToken
	case errors.Is(err, store.ErrAccountNotFound):
		return ErrNoCredential
	case err != nil:
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}

	revoked, err := s.sessions.RevokeAll(ctx, consumed.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", consumed.UserID.String()).Msg("Failed to revoke sessions after password reset")
	}

	telemetry.GetMetrics().PasswordResetsRedeemed.Add(ctx, 1)
	log.Info().
		Str("user_id", consumed.UserID.String()).
		Int("sessions_revoked", revoked).
		Msg("Password reset")

	return nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}
