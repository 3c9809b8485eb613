//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) *pgxpool.Pool {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := NewPool(ctx, &PoolConfig{
		ConnString: fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// second run is a no-op
	require.NoError(t, RunMigrations(ctx, pool))

	return pool
}

func newUser(email string) (*models.User, *models.Account) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := uuid.Must(uuid.NewV7())
	user := &models.User{ID: userID, Name: "Jean Dupont", Email: email, CreatedAt: now, UpdatedAt: now}
	account := &models.Account{
		ID:           uuid.Must(uuid.NewV7()),
		UserID:       userID,
		ProviderID:   models.ProviderCredential,
		AccountID:    userID.String(),
		PasswordHash: "hash-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return user, account
}

func TestIntegration_Stores(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgresContainer(t, ctx)

	users := NewUserStore(pool)
	sessions := NewSessionStore(pool)
	resets := NewPasswordResetStore(pool)
	orgs := NewOrganizationStore(pool)
	conversations := NewConversationStore(pool)

	user, account := newUser("jean@example.com")
	require.NoError(t, users.CreateWithCredential(ctx, user, account))

	t.Run("duplicate email is rejected and leaves nothing behind", func(t *testing.T) {
		dup, dupAccount := newUser("jean@example.com")
		err := users.CreateWithCredential(ctx, dup, dupAccount)
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)

		_, err = users.Get(ctx, dup.ID)
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("credential lookup and password update", func(t *testing.T) {
		got, err := users.GetByEmail(ctx, "jean@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)

		n, err := users.UpdatePassword(ctx, user.ID, "hash-2")
		require.NoError(t, err)
		require.Equal(t, 1, n)

		cred, err := users.GetCredential(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "hash-2", cred.PasswordHash)
	})

	t.Run("sessions", func(t *testing.T) {
		now := time.Now()
		session := &models.Session{
			SessionID:  uuid.Must(uuid.NewV7()),
			UserID:     user.ID,
			CreatedAt:  now,
			ExpiresAt:  now.Add(time.Hour),
			LastUsedAt: now,
			UserAgent:  "test",
			IPAddress:  "10.0.0.1",
		}
		require.NoError(t, sessions.Create(ctx, session))

		got, err := sessions.Get(ctx, session.SessionID)
		require.NoError(t, err)
		require.Equal(t, "10.0.0.1", got.IPAddress)
		require.NoError(t, sessions.UpdateLastUsed(ctx, session.SessionID))

		expired := *session
		expired.SessionID = uuid.Must(uuid.NewV7())
		expired.ExpiresAt = now.Add(-time.Minute)
		expired.IPAddress = ""
		require.NoError(t, sessions.Create(ctx, &expired))

		_, err = sessions.Get(ctx, expired.SessionID)
		require.ErrorIs(t, err, store.ErrSessionExpired)

		n, err := sessions.DeleteExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = sessions.DeleteByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("reset token is redeemed exactly once under concurrency", func(t *testing.T) {
		now := time.Now()
		token := &models.PasswordResetToken{
			ID:        uuid.Must(uuid.NewV7()),
			Token:     "abc123",
			UserID:    user.ID,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}
		require.NoError(t, resets.Create(ctx, token))

		dup := *token
		dup.ID = uuid.Must(uuid.NewV7())
		require.ErrorIs(t, resets.Create(ctx, &dup), store.ErrTokenExists)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := resets.Redeem(ctx, "abc123", time.Now(), "rotated-hash"); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, successes)

		expiring := &models.PasswordResetToken{
			ID:        uuid.Must(uuid.NewV7()),
			Token:     "def456",
			UserID:    user.ID,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}
		require.NoError(t, resets.Create(ctx, expiring))

		_, err := resets.Redeem(ctx, "def456", now.Add(61*time.Minute), "late-hash")
		require.ErrorIs(t, err, store.ErrTokenNotFound)

		cred, err := users.GetCredential(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "rotated-hash", cred.PasswordHash)

		orphanUser, orphanAccount := newUser("orphan@example.com")
		require.NoError(t, users.CreateWithCredential(ctx, orphanUser, orphanAccount))
		_, err = pool.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1`, orphanUser.ID)
		require.NoError(t, err)

		orphan := &models.PasswordResetToken{
			ID:        uuid.Must(uuid.NewV7()),
			Token:     "ghi789",
			UserID:    orphanUser.ID,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}
		require.NoError(t, resets.Create(ctx, orphan))

		// the token update rolls back with the missing credential
		_, err = resets.Redeem(ctx, "ghi789", now, "orphan-hash")
		require.ErrorIs(t, err, store.ErrAccountNotFound)
		var used bool
		require.NoError(t, pool.QueryRow(ctx, `SELECT used FROM password_reset_tokens WHERE token = 'ghi789'`).Scan(&used))
		require.False(t, used)

		n, err := resets.DeleteExpired(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		require.Equal(t, 3, n)
	})

	t.Run("organizations and memberships", func(t *testing.T) {
		now := time.Now()
		org := &models.Organization{ID: uuid.Must(uuid.NewV7()), Name: "Acme Inc.", Slug: "acme-inc", CreatedAt: now, UpdatedAt: now}
		owner := &models.Membership{ID: uuid.Must(uuid.NewV7()), UserID: user.ID, OrganizationID: org.ID, Role: models.RoleOwner, CreatedAt: now}
		require.NoError(t, orgs.CreateWithOwner(ctx, org, owner))

		clash := &models.Organization{ID: uuid.Must(uuid.NewV7()), Name: "Acme", Slug: "acme-inc", CreatedAt: now, UpdatedAt: now}
		clashOwner := &models.Membership{ID: uuid.Must(uuid.NewV7()), UserID: user.ID, OrganizationID: clash.ID, Role: models.RoleOwner, CreatedAt: now}
		require.ErrorIs(t, orgs.CreateWithOwner(ctx, clash, clashOwner), store.ErrSlugTaken)

		exists, err := orgs.SlugExists(ctx, "acme-inc")
		require.NoError(t, err)
		require.True(t, exists)

		list, err := orgs.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, models.OrganizationMembership{ID: org.ID, Name: "Acme Inc.", Slug: "acme-inc", Role: models.RoleOwner}, *list[0])

		again := &models.Membership{ID: uuid.Must(uuid.NewV7()), UserID: user.ID, OrganizationID: org.ID, Role: models.RoleMember, CreatedAt: now}
		require.ErrorIs(t, orgs.AddMember(ctx, again), store.ErrMembershipExists)

		removed, err := orgs.RemoveMemberships(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{org.ID}, removed)

		count, err := orgs.CountMembers(ctx, org.ID)
		require.NoError(t, err)
		require.Zero(t, count)

		require.NoError(t, orgs.Delete(ctx, org.ID))
		_, err = orgs.GetBySlug(ctx, "acme-inc")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("conversations and messages", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Microsecond)
		older := &models.Conversation{
			ID: uuid.Must(uuid.NewV7()), UserID: user.ID, ContactID: uuid.Must(uuid.NewV7()),
			LastMessageAt: base.Add(-time.Hour), Status: models.ConversationActive, CreatedAt: base, UpdatedAt: base,
		}
		newer := &models.Conversation{
			ID: uuid.Must(uuid.NewV7()), UserID: user.ID, ContactID: uuid.Must(uuid.NewV7()),
			LastMessageAt: base.Add(-30 * time.Minute), Status: models.ConversationActive, CreatedAt: base, UpdatedAt: base,
		}
		require.NoError(t, conversations.Create(ctx, older))
		require.NoError(t, conversations.Create(ctx, newer))

		first := &models.Message{ID: uuid.Must(uuid.NewV7()), ConversationID: older.ID, SenderID: user.ID, Text: "hello", Timestamp: base, Status: models.MessageSending}
		second := &models.Message{ID: uuid.Must(uuid.NewV7()), ConversationID: older.ID, SenderID: user.ID, Text: "again", Timestamp: base.Add(time.Second), Status: models.MessageSending}
		require.NoError(t, conversations.CreateMessage(ctx, first))
		require.NoError(t, conversations.CreateMessage(ctx, second))
		require.NoError(t, conversations.UpdateMessageStatus(ctx, second.ID, models.MessageSent))

		missing := &models.Message{ID: uuid.Must(uuid.NewV7()), ConversationID: uuid.Must(uuid.NewV7()), SenderID: user.ID, Text: "x", Timestamp: base, Status: models.MessageSending}
		require.ErrorIs(t, conversations.CreateMessage(ctx, missing), store.ErrConversationNotFound)

		list, err := conversations.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, older.ID, list[0].ID)
		require.NotNil(t, list[0].LastMessage)
		require.Equal(t, "again", list[0].LastMessage.Text)
		require.Nil(t, list[1].LastMessage)

		got, err := conversations.Get(ctx, older.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2)
		require.Equal(t, "hello", got.Messages[0].Text)
		require.Equal(t, models.MessageSent, got.Messages[1].Status)

		require.NoError(t, conversations.DeleteMessage(ctx, second.ID))
		got, err = conversations.Get(ctx, older.ID)
		require.NoError(t, err)
		require.True(t, got.LastMessageAt.Equal(first.Timestamp))
		require.ErrorIs(t, conversations.DeleteMessage(ctx, second.ID), store.ErrMessageNotFound)

		archived, err := conversations.Archive(ctx, uuid.Must(uuid.NewV7()), older.ID)
		require.NoError(t, err)
		require.False(t, archived)

		archived, err = conversations.Archive(ctx, user.ID, older.ID)
		require.NoError(t, err)
		require.True(t, archived)
	})

	t.Run("deleting a user cascades", func(t *testing.T) {
		require.NoError(t, users.Delete(ctx, user.ID))
		_, err := users.GetCredential(ctx, user.ID)
		require.ErrorIs(t, err, store.ErrAccountNotFound)
		require.ErrorIs(t, users.Delete(ctx, user.ID), store.ErrUserNotFound)
	})
}
