package passwordreset

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/mail"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// failingTokens makes the next Redeem fail the way a rolled back transaction does.
type failingTokens struct {
	*memory.PasswordResetStore
	fail error
}

func (f *failingTokens) Redeem(ctx context.Context, token string, now time.Time, passwordHash string) (*models.PasswordResetToken, error) {
	if err := f.fail; err != nil {
		f.fail = nil
		return nil, err
	}
	return f.PasswordResetStore.Redeem(ctx, token, now, passwordHash)
}

type fixture struct {
	svc      *Service
	creds    *login.Credentials
	users    *memory.UserStore
	sessions *memory.SessionStore
	tokens   *failingTokens
	mailer   *recordingMailer
	identity *login.Identity
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:    memory.NewUserStore(),
		sessions: memory.NewSessionStore(),
		mailer:   &recordingMailer{},
		clock:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	creds, err := login.NewCredentials(login.Stores{Users: f.users, Sessions: f.sessions}, login.Config{
		SessionSecret: []byte("test-secret-key-min-32-bytes-long!!"),
		SessionTTL:    24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	})
	require.NoError(t, err)
	f.creds = creds

	f.identity, err = creds.CreateIdentity(context.Background(), login.NewIdentity{
		Name: "Jean Dupont", Email: "jean@example.com", Password: "oldpassword",
	})
	require.NoError(t, err)

	f.tokens = &failingTokens{PasswordResetStore: memory.NewPasswordResetStore(f.users)}
	f.svc = NewService(f.users, f.tokens, creds, f.mailer,
		Config{BaseURL: "https://jokko.app/", BcryptCost: bcrypt.MinCost},
		WithClock(func() time.Time { return f.clock }),
	)
	return f
}

func (f *fixture) requestToken(t *testing.T) string {
	t.Helper()
	require.NoError(t, f.svc.RequestReset(context.Background(), "Jean@Example.com"))
	require.NotEmpty(t, f.mailer.sent)

	msg := f.mailer.sent[len(f.mailer.sent)-1]
	require.Equal(t, "jean@example.com", msg.To)

	for _, field := range strings.Fields(msg.Text) {
		if u, err := url.Parse(field); err == nil && u.Query().Get("token") != "" {
			return u.Query().Get("token")
		}
	}
	t.Fatal("no reset link in email")
	return ""
}

func TestRequestReset(t *testing.T) {
	f := newFixture(t)

	token := f.requestToken(t)
	require.Len(t, token, 64)

	msg := f.mailer.sent[0]
	require.Contains(t, msg.Text, "https://jokko.app/reset-password?token="+token)
	require.Contains(t, msg.Text, "1 hour")

	t.Run("unknown email is silent", func(t *testing.T) {
		require.NoError(t, f.svc.RequestReset(context.Background(), "nobody@example.com"))
		require.Len(t, f.mailer.sent, 1)
	})

	t.Run("empty email", func(t *testing.T) {
		require.ErrorIs(t, f.svc.RequestReset(context.Background(), "  "), ErrEmailRequired)
	})

	t.Run("send failure", func(t *testing.T) {
		f.mailer.err = errors.New("ses down")
		defer func() { f.mailer.err = nil }()
		require.ErrorIs(t, f.svc.RequestReset(context.Background(), "jean@example.com"), ErrSendFailed)
	})
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	token := f.requestToken(t)

	require.NoError(t, f.svc.Redeem(ctx, token, "newpassword"))

	cred, err := f.users.GetCredential(ctx, f.identity.User.ID)
	require.NoError(t, err)
	require.True(t, login.CheckPassword(cred.PasswordHash, "newpassword"))
	require.False(t, login.CheckPassword(cred.PasswordHash, "oldpassword"))

	// existing sessions are revoked
	_, err = f.sessions.Get(ctx, f.identity.Session.SessionID)
	require.Error(t, err)

	// the token is single use
	require.ErrorIs(t, f.svc.Redeem(ctx, token, "anotherpassword"), ErrInvalidToken)

	_, err = f.creds.SignIn(ctx, "jean@example.com", "newpassword", login.RequestMeta{})
	require.NoError(t, err)
}

func TestRedeemRetryAfterStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	token := f.requestToken(t)

	f.tokens.fail = errors.New("db down")
	err := f.svc.Redeem(ctx, token, "newpassword")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidToken)

	cred, err := f.users.GetCredential(ctx, f.identity.User.ID)
	require.NoError(t, err)
	require.True(t, login.CheckPassword(cred.PasswordHash, "oldpassword"))

	require.NoError(t, f.svc.Redeem(ctx, token, "newpassword"), "the same link works once the store recovers")

	cred, err = f.users.GetCredential(ctx, f.identity.User.ID)
	require.NoError(t, err)
	require.True(t, login.CheckPassword(cred.PasswordHash, "newpassword"))
}

func TestRedeemWithoutCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.tokens.Create(ctx, &models.PasswordResetToken{
		ID:        uuid.Must(uuid.NewV7()),
		Token:     "no-credential",
		UserID:    uuid.Must(uuid.NewV7()),
		ExpiresAt: f.clock.Add(time.Hour),
		CreatedAt: f.clock,
	}))

	require.ErrorIs(t, f.svc.Redeem(ctx, "no-credential", "newpassword"), ErrNoCredential)
	require.ErrorIs(t, f.svc.Redeem(ctx, "no-credential", "newpassword"), ErrNoCredential, "the token is not spent")
}

func TestRedeemExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted at 59 minutes", func(t *testing.T) {
		f := newFixture(t)
		token := f.requestToken(t)
		f.clock = f.clock.Add(59 * time.Minute)
		require.NoError(t, f.svc.Redeem(ctx, token, "newpassword"))
	})

	t.Run("rejected at 61 minutes", func(t *testing.T) {
		f := newFixture(t)
		token := f.requestToken(t)
		f.clock = f.clock.Add(61 * time.Minute)
		require.ErrorIs(t, f.svc.Redeem(ctx, token, "newpassword"), ErrInvalidToken)

		cred, err := f.users.GetCredential(ctx, f.identity.User.ID)
		require.NoError(t, err)
		require.True(t, login.CheckPassword(cred.PasswordHash, "oldpassword"))
	})
}

func TestRedeemValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.svc.Redeem(ctx, "", "newpassword"), ErrMissingFields)
	require.ErrorIs(t, f.svc.Redeem(ctx, "abc", ""), ErrMissingFields)
	require.Error(t, f.svc.Redeem(ctx, "abc", "short"))
	require.ErrorIs(t, f.svc.Redeem(ctx, "unknown-token", "newpassword"), ErrInvalidToken)
}

func TestRedeemConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	token := f.requestToken(t)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.svc.Redeem(ctx, token, "newpassword")
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrInvalidToken)
		}
	}
	require.Equal(t, 1, succeeded)
}

func TestHumanDuration(t *testing.T) {
	require.Equal(t, "1 hour", humanDuration(time.Hour))
	require.Equal(t, "2 hours", humanDuration(2*time.Hour))
	require.Equal(t, "30 minutes", humanDuration(30*time.Minute))
}

var _ SessionRevoker = (*login.Credentials)(nil)
