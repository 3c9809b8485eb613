package models

import (
	"time"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	ConversationActive  ConversationStatus = "active"
	ConversationPending ConversationStatus = "pending"
	ConversationClosed  ConversationStatus = "closed"
)

// Conversation is a thread owned by a single user with one contact.
type Conversation struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ContactID     uuid.UUID
	Subject       *string
	Archived      bool
	UnreadCount   int
	LastMessageAt time.Time
	Status        ConversationStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// LastMessage is populated when listing.
	LastMessage *Message
	// Messages is populated when fetching a single conversation, oldest first.
	Messages []*Message
}

type MessageStatus string

const (
	MessageSending   MessageStatus = "sending"
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
	MessageError     MessageStatus = "error"
)

// Message belongs to exactly one conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Text           string
	Timestamp      time.Time
	Status         MessageStatus
}
