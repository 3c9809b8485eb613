package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// PasswordResetStore implements store.PasswordResetStore using in-memory storage.
// Redeem rewrites credentials held by users, which may be nil when nothing redeems.
type PasswordResetStore struct {
	mu     sync.Mutex
	users  *UserStore
	tokens map[string]*models.PasswordResetToken // token -> record
}

func NewPasswordResetStore(users *UserStore) *PasswordResetStore {
	return &PasswordResetStore{
		users:  users,
		tokens: make(map[string]*models.PasswordResetToken),
	}
}

func (s *PasswordResetStore) Create(ctx context.Context, token *models.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *token
	s.tokens[token.Token] = &clone
	return nil
}

// Redeem holds the token lock across the credential update, so the token is only
// marked used once the new hash is in place.
func (s *PasswordResetStore) Redeem(ctx context.Context, token string, now time.Time, passwordHash string) (*models.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.tokens[token]
	if !exists || !record.ValidAt(now) {
		return nil, store.ErrTokenNotFound
	}
	if s.users == nil {
		return nil, store.ErrAccountNotFound
	}

	updated, err := s.users.UpdatePassword(ctx, record.UserID, passwordHash)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, store.ErrAccountNotFound
	}

	record.Used = true
	clone := *record
	return &clone, nil
}

func (s *PasswordResetStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, record := range s.tokens {
		if record.UserID == userID {
			delete(s.tokens, key)
			count++
		}
	}
	return count, nil
}

func (s *PasswordResetStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, record := range s.tokens {
		if !record.ValidAt(now) {
			delete(s.tokens, key)
			count++
		}
	}
	return count, nil
}
