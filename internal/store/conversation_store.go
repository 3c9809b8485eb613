package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
)

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	Create(ctx context.Context, conversation *models.Conversation) error

	// ListByUser returns the user's conversations, most recent activity first,
	// each with its latest message in LastMessage.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)

	// Get returns the conversation with Messages ordered oldest first.
	// Returns ErrConversationNotFound if it doesn't exist.
	Get(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error)

	// Archive sets the archived flag only when the conversation is owned by userID.
	// It reports whether a row was updated.
	Archive(ctx context.Context, userID, conversationID uuid.UUID) (bool, error)

	// CreateMessage inserts the message and moves the conversation's LastMessageAt forward.
	// Returns ErrConversationNotFound if the conversation doesn't exist.
	CreateMessage(ctx context.Context, message *models.Message) error

	GetMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error)
	UpdateMessageStatus(ctx context.Context, messageID uuid.UUID, status models.MessageStatus) error

	// DeleteMessage removes the message and recomputes the conversation's LastMessageAt.
	// Returns ErrMessageNotFound if it doesn't exist.
	DeleteMessage(ctx context.Context, messageID uuid.UUID) error
}
