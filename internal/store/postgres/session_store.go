package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

const sessionColumns = `session_id, user_id, created_at, expires_at, last_used_at, user_agent, COALESCE(host(ip_address), '')`

// SessionStore implements store.SessionStore using PostgreSQL.
// The ip_address column is INET, an empty address is stored as NULL.
type SessionStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool, now: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, sess *models.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, created_at, expires_at, last_used_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::inet)
	`, sess.SessionID, sess.UserID, sess.CreatedAt, sess.ExpiresAt, sess.LastUsedAt, sess.UserAgent, sess.IPAddress)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", mapPostgresError(err))
	}

	log.Debug().Str("session_id", sess.SessionID.String()).Str("user_id", sess.UserID.String()).Msg("Session stored")
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, sessionID)

	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if sess.IsExpiredAt(s.now()) {
		return nil, store.ErrSessionExpired
	}
	return sess, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var sess models.Session
	err := row.Scan(&sess.SessionID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastUsedAt, &sess.UserAgent, &sess.IPAddress)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, store.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error {
	return s.execOne(ctx, "touch", `UPDATE sessions SET last_used_at = $2 WHERE session_id = $1`, sessionID, s.now())
}

func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return s.execOne(ctx, "delete", `DELETE FROM sessions WHERE session_id = $1`, sessionID)
}

// execOne runs a statement that must hit exactly the given session row.
func (s *SessionStore) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s session: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	revoked := int(tag.RowsAffected())
	log.Info().Str("user_id", userID.String()).Int("revoked", revoked).Msg("Revoked user sessions")
	return revoked, nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
