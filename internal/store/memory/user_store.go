package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing and local development - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users    map[uuid.UUID]*models.User      // user_id -> User
	byEmail  map[string]uuid.UUID            // email -> user_id
	accounts map[uuid.UUID][]*models.Account // user_id -> accounts
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:    make(map[uuid.UUID]*models.User),
		byEmail:  make(map[string]uuid.UUID),
		accounts: make(map[uuid.UUID][]*models.Account),
	}
}

func (s *UserStore) CreateWithCredential(ctx context.Context, user *models.User, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrUserAlreadyExists
	}
	if _, exists := s.users[user.ID]; exists {
		return store.ErrUserAlreadyExists
	}

	u := *user
	a := *account
	s.users[user.ID] = &u
	s.byEmail[user.Email] = user.ID
	s.accounts[user.ID] = append(s.accounts[user.ID], &a)

	return nil
}

func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.byEmail[email]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *s.users[userID]
	return &clone, nil
}

func (s *UserStore) GetCredential(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts[userID] {
		if account.ProviderID == models.ProviderCredential {
			clone := *account
			return &clone, nil
		}
	}

	return nil, store.ErrAccountNotFound
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, account := range s.accounts[userID] {
		if account.ProviderID != models.ProviderCredential {
			continue
		}
		account.PasswordHash = passwordHash
		account.UpdatedAt = time.Now()
		count++
	}

	return count, nil
}

func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}

	delete(s.byEmail, user.Email)
	delete(s.accounts, userID)
	delete(s.users, userID)

	return nil
}
