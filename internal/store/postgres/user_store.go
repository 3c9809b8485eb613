package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
// It shares the connection pool with other stores.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

// CreateWithCredential inserts the user and credential account in one transaction.
func (s *UserStore) CreateWithCredential(ctx context.Context, user *models.User, account *models.Account) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, email_verified, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, user.ID, user.Name, user.Email, user.EmailVerified, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO accounts (id, user_id, provider_id, account_id, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, account.ID, account.UserID, account.ProviderID, account.AccountID, account.PasswordHash,
			account.CreatedAt, account.UpdatedAt)
		return err
	})
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrUserAlreadyExists) {
			return mapped
		}
		return fmt.Errorf("failed to create user: %w", mapped)
	}

	log.Debug().
		Str("user_id", user.ID.String()).
		Msg("Created user with credential account")

	return nil
}

const userColumns = `id, name, email, email_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetCredential(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	query := `
		SELECT id, user_id, provider_id, account_id, COALESCE(password_hash, ''), created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND provider_id = $2
		ORDER BY created_at
		LIMIT 1
	`

	var a models.Account
	err := s.pool.QueryRow(ctx, query, userID, models.ProviderCredential).Scan(
		&a.ID, &a.UserID, &a.ProviderID, &a.AccountID, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get credential account: %w", err)
	}

	return &a, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) (int, error) {
	return setCredentialHash(ctx, s.pool, userID, passwordHash, time.Now())
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func setCredentialHash(ctx context.Context, db execer, userID uuid.UUID, passwordHash string, now time.Time) (int, error) {
	result, err := db.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $3, updated_at = $4
		WHERE user_id = $1 AND provider_id = $2
	`, userID, models.ProviderCredential, passwordHash, now)
	if err != nil {
		return 0, fmt.Errorf("failed to update password: %w", mapPostgresError(err))
	}

	return int(result.RowsAffected()), nil
}

// Delete removes the user; accounts, sessions, reset tokens, memberships and
// conversations are removed by FK cascade.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Info().
		Str("user_id", userID.String()).
		Msg("Deleted user")

	return nil
}
