// Package conversations implements the inbox: conversations owned by a user and their messages.
package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/revalidate"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/telemetry"
	"github.com/wolfeidau/jokko/internal/validate"
)

const (
	ListPath = "/dashboard/conversations"

	MaxMessageLength = 4096
	MaxSubjectLength = 255
)

var (
	ErrNotFound  = errors.New("conversation not found")
	ErrForbidden = errors.New("only the sender can delete a message")
)

// DetailPath is the dashboard view of a single conversation.
func DetailPath(id uuid.UUID) string {
	return ListPath + "/" + id.String()
}

type Service struct {
	store     store.ConversationStore
	sender    Sender
	publisher revalidate.Publisher
	now       func() time.Time
}

func NewService(conversations store.ConversationStore, sender Sender, publisher revalidate.Publisher) *Service {
	return &Service{
		store:     conversations,
		sender:    sender,
		publisher: publisher,
		now:       time.Now,
	}
}

// List returns the user's conversations, most recent activity first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if list == nil {
		list = []*models.Conversation{}
	}
	return list, nil
}

// Create starts a conversation between userID and the contact.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, contactID string, subject *string) (*models.Conversation, error) {
	contact, err := validate.UUID("contactId", contactID)
	if err != nil {
		return nil, err
	}

	if subject != nil {
		trimmed := strings.TrimSpace(*subject)
		if err := validate.Length("subject", trimmed, 1, MaxSubjectLength); err != nil {
			return nil, err
		}
		subject = &trimmed
	}

	now := s.now()
	c := &models.Conversation{
		ID:            uuid.Must(uuid.NewV7()),
		UserID:        userID,
		ContactID:     contact,
		Subject:       subject,
		LastMessageAt: now,
		Status:        models.ConversationActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.publisher.Publish(userID, ListPath)
	return c, nil
}

// Get returns the conversation with its messages when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	c, err := s.store.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if c.UserID != userID {
		return nil, ErrNotFound
	}
	if c.Messages == nil {
		c.Messages = []*models.Message{}
	}
	return c, nil
}

// SendMessage stores the message and hands it to the outbound sender.
//
// The message is returned even when the sender fails; its status is then error and
// the send error is returned alongside it.
func (s *Service) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if err := validate.Length("text", text, 1, MaxMessageLength); err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:             uuid.Must(uuid.NewV7()),
		ConversationID: c.ID,
		SenderID:       senderID,
		Text:           text,
		Timestamp:      s.now(),
		Status:         models.MessageSending,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	defer s.publisher.Publish(senderID, DetailPath(c.ID), ListPath)

	metrics := telemetry.GetMetrics()

	sendErr := s.sender.Send(ctx, c, msg)
	status := models.MessageSent
	if sendErr != nil {
		status = models.MessageError
		metrics.MessagesFailedTotal.Add(ctx, 1)
		log.Error().Err(sendErr).
			Str("conversation_id", c.ID.String()).
			Str("message_id", msg.ID.String()).
			Msg("Outbound send failed")
	} else {
		metrics.MessagesSentTotal.Add(ctx, 1)
	}

	if err := s.store.UpdateMessageStatus(ctx, msg.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}
	msg.Status = status

	if sendErr != nil {
		return msg, fmt.Errorf("%w: %w", ErrSendFailed, sendErr)
	}
	return msg, nil
}

// DeleteMessage removes a message sent by requesterID. A missing message is not an error.
func (s *Service) DeleteMessage(ctx context.Context, requesterID, messageID uuid.UUID) error {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get message: %w", err)
	}

	if msg.SenderID != requesterID {
		return ErrForbidden
	}

	if err := s.store.DeleteMessage(ctx, messageID); err != nil && !errors.Is(err, store.ErrMessageNotFound) {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	s.publisher.Publish(requesterID, DetailPath(msg.ConversationID), ListPath)
	return nil
}

// Archive hides the conversation from the active inbox. Conversations not owned by
// userID are left untouched and no error is returned.
func (s *Service) Archive(ctx context.Context, userID, conversationID uuid.UUID) error {
	updated, err := s.store.Archive(ctx, userID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to archive conversation: %w", err)
	}
	if updated {
		s.publisher.Publish(userID, ListPath)
	}
	return nil
}
