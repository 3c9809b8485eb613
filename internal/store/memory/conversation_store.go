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

// ConversationStore implements store.ConversationStore using in-memory storage.
type ConversationStore struct {
	mu sync.RWMutex

	conversations map[uuid.UUID]*models.Conversation // conversation_id -> Conversation
	messages      map[uuid.UUID]*models.Message      // message_id -> Message
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID]*models.Message),
	}
}

func (s *ConversationStore) Create(ctx context.Context, conversation *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *conversation
	clone.LastMessage = nil
	clone.Messages = nil
	s.conversations[conversation.ID] = &clone
	return nil
}

func (s *ConversationStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Conversation
	for _, c := range s.conversations {
		if c.UserID != userID {
			continue
		}
		clone := *c
		msgs := s.messagesFor(c.ID)
		if len(msgs) > 0 {
			clone.LastMessage = msgs[len(msgs)-1]
		}
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Conversation) int {
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})

	return result, nil
}

func (s *ConversationStore) Get(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.conversations[conversationID]
	if !exists {
		return nil, store.ErrConversationNotFound
	}

	clone := *c
	clone.Messages = s.messagesFor(c.ID)
	return &clone, nil
}

func (s *ConversationStore) Archive(ctx context.Context, userID, conversationID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.conversations[conversationID]
	if !exists || c.UserID != userID {
		return false, nil
	}

	c.Archived = true
	c.UpdatedAt = time.Now()
	return true, nil
}

func (s *ConversationStore) CreateMessage(ctx context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.conversations[message.ConversationID]
	if !exists {
		return store.ErrConversationNotFound
	}

	clone := *message
	s.messages[message.ID] = &clone
	if message.Timestamp.After(c.LastMessageAt) {
		c.LastMessageAt = message.Timestamp
	}
	c.UpdatedAt = time.Now()

	return nil
}

func (s *ConversationStore) GetMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.messages[messageID]
	if !exists {
		return nil, store.ErrMessageNotFound
	}

	clone := *m
	return &clone, nil
}

func (s *ConversationStore) UpdateMessageStatus(ctx context.Context, messageID uuid.UUID, status models.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.messages[messageID]
	if !exists {
		return store.ErrMessageNotFound
	}

	m.Status = status
	return nil
}

func (s *ConversationStore) DeleteMessage(ctx context.Context, messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.messages[messageID]
	if !exists {
		return store.ErrMessageNotFound
	}
	delete(s.messages, messageID)

	if c, ok := s.conversations[m.ConversationID]; ok {
		if remaining := s.messagesFor(c.ID); len(remaining) > 0 {
			c.LastMessageAt = remaining[len(remaining)-1].Timestamp
		}
		c.UpdatedAt = time.Now()
	}

	return nil
}

// messagesFor returns copies of a conversation's messages, oldest first. Caller holds the lock.
func (s *ConversationStore) messagesFor(conversationID uuid.UUID) []*models.Message {
	var msgs []*models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			clone := *m
			msgs = append(msgs, &clone)
		}
	}
	slices.SortFunc(msgs, func(a, b *models.Message) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return msgs
}
