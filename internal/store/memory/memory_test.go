package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// compile-time interface checks
var (
	_ store.UserStore          = (*UserStore)(nil)
	_ store.SessionStore       = (*SessionStore)(nil)
	_ store.PasswordResetStore = (*PasswordResetStore)(nil)
	_ store.OrganizationStore  = (*OrganizationStore)(nil)
	_ store.ConversationStore  = (*ConversationStore)(nil)
)

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()

	userID := uuid.Must(uuid.NewV7())
	user := &models.User{ID: userID, Name: "Jean", Email: "jean@example.com"}
	account := &models.Account{ID: uuid.Must(uuid.NewV7()), UserID: userID, ProviderID: models.ProviderCredential, AccountID: userID.String(), PasswordHash: "old"}

	require.NoError(t, s.CreateWithCredential(ctx, user, account))

	dupID := uuid.Must(uuid.NewV7())
	err := s.CreateWithCredential(ctx, &models.User{ID: dupID, Email: "jean@example.com"}, &models.Account{UserID: dupID})
	require.ErrorIs(t, err, store.ErrUserAlreadyExists)

	// mutating the caller's copy doesn't leak into the store
	user.Name = "changed"
	got, err := s.GetByEmail(ctx, "jean@example.com")
	require.NoError(t, err)
	require.Equal(t, "Jean", got.Name)

	n, err := s.UpdatePassword(ctx, userID, "new")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	cred, err := s.GetCredential(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "new", cred.PasswordHash)

	require.NoError(t, s.Delete(ctx, userID))
	_, err = s.Get(ctx, userID)
	require.ErrorIs(t, err, store.ErrUserNotFound)
	_, err = s.GetCredential(ctx, userID)
	require.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	userID := uuid.Must(uuid.NewV7())
	now := time.Now()

	live := &models.Session{SessionID: uuid.Must(uuid.NewV7()), UserID: userID, ExpiresAt: now.Add(time.Hour)}
	expired := &models.Session{SessionID: uuid.Must(uuid.NewV7()), UserID: userID, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.Create(ctx, live))
	require.NoError(t, s.Create(ctx, expired))

	_, err := s.Get(ctx, expired.SessionID)
	require.ErrorIs(t, err, store.ErrSessionExpired)

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = s.Get(ctx, live.SessionID)
	require.NoError(t, err)

	n, err = s.DeleteByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.ErrorIs(t, s.Delete(ctx, live.SessionID), store.ErrSessionNotFound)
}

func TestPasswordResetStore_Redeem(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore()
	s := NewPasswordResetStore(users)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	userID := uuid.Must(uuid.NewV7())
	require.NoError(t, users.CreateWithCredential(ctx,
		&models.User{ID: userID, Name: "Jean", Email: "jean@example.com"},
		&models.Account{ID: uuid.Must(uuid.NewV7()), UserID: userID, ProviderID: models.ProviderCredential, AccountID: userID.String(), PasswordHash: "old"},
	))
	require.NoError(t, s.Create(ctx, &models.PasswordResetToken{Token: "t1", UserID: userID, ExpiresAt: issued.Add(time.Hour)}))

	_, err := s.Redeem(ctx, "t1", issued.Add(61*time.Minute), "new")
	require.ErrorIs(t, err, store.ErrTokenNotFound)

	tok, err := s.Redeem(ctx, "t1", issued.Add(59*time.Minute), "new")
	require.NoError(t, err)
	require.True(t, tok.Used)

	cred, err := users.GetCredential(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "new", cred.PasswordHash)

	_, err = s.Redeem(ctx, "t1", issued.Add(59*time.Minute), "newer")
	require.ErrorIs(t, err, store.ErrTokenNotFound)

	_, err = s.Redeem(ctx, "unknown", issued, "new")
	require.ErrorIs(t, err, store.ErrTokenNotFound)

	t.Run("owner without credential keeps the token", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, &models.PasswordResetToken{Token: "t2", UserID: uuid.Must(uuid.NewV7()), ExpiresAt: issued.Add(time.Hour)}))

		for range 2 {
			_, err := s.Redeem(ctx, "t2", issued, "new")
			require.ErrorIs(t, err, store.ErrAccountNotFound)
		}

		n, err := s.DeleteExpired(ctx, issued)
		require.NoError(t, err)
		require.Equal(t, 1, n, "only t1 is spent, t2 is still unused")
	})
}

func TestOrganizationStore(t *testing.T) {
	ctx := context.Background()
	s := NewOrganizationStore()
	userID := uuid.Must(uuid.NewV7())

	org := &models.Organization{ID: uuid.Must(uuid.NewV7()), Name: "Acme Inc.", Slug: "acme-inc"}
	require.NoError(t, s.CreateWithOwner(ctx, org, &models.Membership{ID: uuid.Must(uuid.NewV7()), UserID: userID, OrganizationID: org.ID, Role: models.RoleOwner}))

	other := &models.Organization{ID: uuid.Must(uuid.NewV7()), Name: "Acme", Slug: "acme-inc"}
	err := s.CreateWithOwner(ctx, other, &models.Membership{ID: uuid.Must(uuid.NewV7()), UserID: userID, OrganizationID: other.ID, Role: models.RoleOwner})
	require.ErrorIs(t, err, store.ErrSlugTaken)

	err = s.AddMember(ctx, &models.Membership{UserID: userID, OrganizationID: org.ID, Role: models.RoleMember})
	require.ErrorIs(t, err, store.ErrMembershipExists)

	list, err := s.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "acme-inc", list[0].Slug)
	require.Equal(t, models.RoleOwner, list[0].Role)

	removed, err := s.RemoveMemberships(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{org.ID}, removed)

	count, err := s.CountMembers(ctx, org.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, s.Delete(ctx, org.ID))
	exists, err := s.SlugExists(ctx, "acme-inc")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestConversationStore(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()
	owner := uuid.Must(uuid.NewV7())
	base := time.Now()

	a := &models.Conversation{ID: uuid.Must(uuid.NewV7()), UserID: owner, LastMessageAt: base.Add(-time.Hour)}
	b := &models.Conversation{ID: uuid.Must(uuid.NewV7()), UserID: owner, LastMessageAt: base.Add(-time.Minute)}
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))

	first := &models.Message{ID: uuid.Must(uuid.NewV7()), ConversationID: a.ID, SenderID: owner, Text: "one", Timestamp: base}
	second := &models.Message{ID: uuid.Must(uuid.NewV7()), ConversationID: a.ID, SenderID: owner, Text: "two", Timestamp: base.Add(time.Second)}
	require.NoError(t, s.CreateMessage(ctx, first))
	require.NoError(t, s.CreateMessage(ctx, second))

	list, err := s.ListByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, a.ID, list[0].ID)
	require.Equal(t, "two", list[0].LastMessage.Text)

	require.NoError(t, s.DeleteMessage(ctx, second.ID))
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.True(t, got.LastMessageAt.Equal(first.Timestamp))

	ok, err := s.Archive(ctx, uuid.Must(uuid.NewV7()), a.ID)
	require.NoError(t, err)
	require.False(t, ok)

	got, err = s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, got.Archived)
}
