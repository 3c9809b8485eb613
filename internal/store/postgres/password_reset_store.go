package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// PasswordResetStore implements store.PasswordResetStore using PostgreSQL.
type PasswordResetStore struct {
	pool *pgxpool.Pool
}

func NewPasswordResetStore(pool *pgxpool.Pool) *PasswordResetStore {
	return &PasswordResetStore{pool: pool}
}

func (s *PasswordResetStore) Create(ctx context.Context, token *models.PasswordResetToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, token, user_id, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID, token.Token, token.UserID, token.ExpiresAt, token.Used, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", mapPostgresError(err))
	}
	return nil
}

// Redeem flips used with a conditional UPDATE, so two concurrent redemptions of the
// same token can't both succeed, and rewrites the credential in the same transaction.
func (s *PasswordResetStore) Redeem(ctx context.Context, token string, now time.Time, passwordHash string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE password_reset_tokens
			SET used = TRUE
			WHERE token = $1 AND used = FALSE AND expires_at > $2
			RETURNING id, token, user_id, expires_at, used, created_at
		`, token, now).Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.Used, &t.CreatedAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return store.ErrTokenNotFound
		case err != nil:
			return fmt.Errorf("failed to consume reset token: %w", err)
		}

		updated, err := setCredentialHash(ctx, tx, t.UserID, passwordHash, now)
		if err != nil {
			return err
		}
		if updated == 0 {
			return store.ErrAccountNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (s *PasswordResetStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reset tokens: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (s *PasswordResetStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE used = TRUE OR expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return int(result.RowsAffected()), nil
}
