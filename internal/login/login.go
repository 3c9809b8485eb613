// Package login is the authentication gateway: credential accounts, sign in and
// server-side sessions referenced by a signed cookie.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/jokko/internal/http"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/telemetry"
	"github.com/wolfeidau/jokko/internal/validate"
)

// SessionCookieName is the cookie carrying the signed session reference.
const SessionCookieName = "_session"

var (
	ErrInvalidSession     = errors.New("invalid session")
	ErrExpiredSession     = errors.New("session expired")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Gateway is the capability the signup flow and route guard need from the auth layer.
type Gateway interface {
	CreateIdentity(ctx context.Context, in NewIdentity) (*Identity, error)
	GetSession(r *http.Request) (*SessionData, error)
}

// Stores groups the persistence the gateway depends on.
type Stores struct {
	Users    store.UserStore
	Sessions store.SessionStore
}

// Config controls session issuance.
type Config struct {
	SessionSecret []byte
	SessionTTL    time.Duration
	// SecureCookies sets the Secure attribute; disable only for plain HTTP development.
	SecureCookies bool
	// BcryptCost of zero uses bcrypt.DefaultCost.
	BcryptCost int
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// RequestMeta is audit information recorded with a session.
type RequestMeta struct {
	UserAgent string
	IPAddress string
}

// MetaFromRequest collects the user agent and client IP of r.
func MetaFromRequest(r *http.Request) RequestMeta {
	ip := httpmiddleware.ClientIPFromContext(r.Context())
	if ip == "" {
		ip = httpmiddleware.ExtractClientIP(r, false)
	}
	return RequestMeta{UserAgent: r.UserAgent(), IPAddress: ip}
}

// NewIdentity is the input to CreateIdentity.
type NewIdentity struct {
	Name     string
	Email    string
	Password string
	Meta     RequestMeta
}

// Identity is an authenticated user with a freshly issued session.
type Identity struct {
	User      *models.User
	Session   *models.Session
	Token     string // cookie value
	ExpiresAt time.Time
}

// SessionData holds the authenticated user's session information.
type SessionData struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// Credentials implements Gateway with bcrypt password accounts.
type Credentials struct {
	stores     Stores
	cfg        Config
	timingHash string
}

var _ Gateway = (*Credentials)(nil)

func NewCredentials(stores Stores, cfg Config) (*Credentials, error) {
	if stores.Users == nil || stores.Sessions == nil {
		return nil, errors.New("user and session stores are required")
	}
	if len(cfg.SessionSecret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("session TTL must be greater than 0")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// compared against when the email is unknown so both paths cost one bcrypt check
	timingHash, err := HashPassword("jokko-timing-equalizer", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &Credentials{stores: stores, cfg: cfg, timingHash: timingHash}, nil
}

func (c *Credentials) now() time.Time { return c.cfg.Now() }

// HashPassword hashes with the configured bcrypt cost.
func (c *Credentials) HashPassword(password string) (string, error) {
	return HashPassword(password, c.cfg.BcryptCost)
}

// CreateIdentity registers a user with a credential account and signs them in.
func (c *Credentials) CreateIdentity(ctx context.Context, in NewIdentity) (*Identity, error) {
	name := strings.TrimSpace(in.Name)
	if err := validate.Length("name", name, 1, 255); err != nil {
		return nil, err
	}
	email, err := validate.Email("email", in.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword("password", in.Password); err != nil {
		return nil, err
	}

	hash, err := c.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := c.now()
	userID := uuid.Must(uuid.NewV7())
	user := &models.User{
		ID:        userID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account := &models.Account{
		ID:           uuid.Must(uuid.NewV7()),
		UserID:       userID,
		ProviderID:   models.ProviderCredential,
		AccountID:    userID.String(),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.stores.Users.CreateWithCredential(ctx, user, account); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", userID.String()).Msg("Created credential identity")

	return c.startSession(ctx, user, in.Meta)
}

// SignIn verifies an email and password and issues a new session.
// Every mismatch returns ErrInvalidCredentials.
func (c *Credentials) SignIn(ctx context.Context, email, password string, meta RequestMeta) (*Identity, error) {
	metrics := telemetry.GetMetrics()

	id, err := c.signIn(ctx, email, password, meta)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		metrics.SignInFailuresTotal.Add(ctx, 1)
	case err == nil:
		metrics.SignInsTotal.Add(ctx, 1)
	}
	return id, err
}

func (c *Credentials) signIn(ctx context.Context, email, password string, meta RequestMeta) (*Identity, error) {
	user, err := c.stores.Users.GetByEmail(ctx, validate.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			CheckPassword(c.timingHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	account, err := c.stores.Users.GetCredential(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			CheckPassword(c.timingHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	if !CheckPassword(account.PasswordHash, password) {
		log.Debug().Str("user_id", user.ID.String()).Msg("Password mismatch")
		return nil, ErrInvalidCredentials
	}

	return c.startSession(ctx, user, meta)
}

func (c *Credentials) startSession(ctx context.Context, user *models.User, meta RequestMeta) (*Identity, error) {
	now := c.now()
	session := &models.Session{
		SessionID:  uuid.Must(uuid.NewV7()),
		UserID:     user.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.cfg.SessionTTL),
		LastUsedAt: now,
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
	}

	if err := c.stores.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := c.signSessionToken(session.SessionID, user.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &Identity{User: user, Session: session, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// GetSession extracts and validates the session from a request.
func (c *Credentials) GetSession(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrInvalidSession
	}

	sessionID, userID, err := c.parseSessionToken(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("Session token rejected")
		return nil, ErrInvalidSession
	}

	ctx := r.Context()
	session, err := c.stores.Sessions.Get(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionExpired):
			return nil, ErrExpiredSession
		case errors.Is(err, store.ErrSessionNotFound):
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.UserID != userID {
		log.Warn().Str("session_id", sessionID.String()).Msg("Session token subject mismatch")
		return nil, ErrInvalidSession
	}
	if session.IsExpiredAt(c.now()) {
		return nil, ErrExpiredSession
	}

	if err := c.stores.Sessions.UpdateLastUsed(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to touch session")
	}

	return &SessionData{SessionID: session.SessionID, UserID: session.UserID, ExpiresAt: session.ExpiresAt}, nil
}

// SignOut deletes the server-side session referenced by the request, if any.
func (c *Credentials) SignOut(r *http.Request) error {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}

	sessionID, _, err := c.parseSessionToken(cookie.Value)
	if err != nil {
		return nil
	}

	if err := c.stores.Sessions.Delete(r.Context(), sessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RevokeAll removes every session of a user.
func (c *Credentials) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return c.stores.Sessions.DeleteByUser(ctx, userID)
}

// SetSessionCookie stores the identity's token on the response.
func (c *Credentials) SetSessionCookie(w http.ResponseWriter, id *Identity) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  id.ExpiresAt,
		MaxAge:   int(id.ExpiresAt.Sub(c.now()).Seconds()),
	})
}

// ClearSessionCookie expires the session cookie.
func (c *Credentials) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
