package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// SessionStore implements store.SessionStore using in-memory storage.
type SessionStore struct {
	mu sync.RWMutex

	sessions       map[uuid.UUID]*models.Session // session_id -> Session
	sessionsByUser map[uuid.UUID][]uuid.UUID     // user_id -> []session_id
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:       make(map[uuid.UUID]*models.Session),
		sessionsByUser: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *session
	s.sessions[session.SessionID] = &clone
	s.sessionsByUser[session.UserID] = append(s.sessionsByUser[session.UserID], session.SessionID)

	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, store.ErrSessionNotFound
	}

	if session.IsExpired() {
		return nil, store.ErrSessionExpired
	}

	clone := *session
	return &clone, nil
}

func (s *SessionStore) UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return store.ErrSessionNotFound
	}

	session.LastUsedAt = time.Now()
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return store.ErrSessionNotFound
	}

	s.removeFromUserIndex(session.UserID, sessionID)
	delete(s.sessions, sessionID)

	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionIDs := s.sessionsByUser[userID]
	for _, sessionID := range sessionIDs {
		delete(s.sessions, sessionID)
	}
	delete(s.sessionsByUser, userID)

	return len(sessionIDs), nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for id, session := range s.sessions {
		if !session.IsExpiredAt(now) {
			continue
		}
		s.removeFromUserIndex(session.UserID, id)
		delete(s.sessions, id)
		count++
	}

	return count, nil
}

func (s *SessionStore) removeFromUserIndex(userID, sessionID uuid.UUID) {
	ids := slices.DeleteFunc(s.sessionsByUser[userID], func(id uuid.UUID) bool { return id == sessionID })
	if len(ids) == 0 {
		delete(s.sessionsByUser, userID)
		return
	}
	s.sessionsByUser[userID] = ids
}
