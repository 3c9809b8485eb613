package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/models"
)

type userJSON struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toUser(u *models.User) *userJSON {
	if u == nil {
		return nil
	}
	return &userJSON{ID: u.ID, Name: u.Name, Email: u.Email, EmailVerified: u.EmailVerified, CreatedAt: u.CreatedAt}
}

type organizationJSON struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
}

func toOrganization(o *models.Organization) *organizationJSON {
	if o == nil {
		return nil
	}
	return &organizationJSON{ID: o.ID, Name: o.Name, Slug: o.Slug, Description: o.Description}
}

type membershipJSON struct {
	ID   uuid.UUID   `json:"id"`
	Name string      `json:"name"`
	Slug string      `json:"slug"`
	Role models.Role `json:"role"`
}

type sessionJSON struct {
	ID        uuid.UUID `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type messageJSON struct {
	ID             uuid.UUID            `json:"id"`
	ConversationID uuid.UUID            `json:"conversationId"`
	SenderID       uuid.UUID            `json:"senderId"`
	Text           string               `json:"text"`
	Timestamp      time.Time            `json:"timestamp"`
	Status         models.MessageStatus `json:"status"`
}

func toMessage(m *models.Message) *messageJSON {
	if m == nil {
		return nil
	}
	return &messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Timestamp:      m.Timestamp,
		Status:         m.Status,
	}
}

type conversationJSON struct {
	ID            uuid.UUID                 `json:"id"`
	UserID        uuid.UUID                 `json:"userId"`
	ContactID     uuid.UUID                 `json:"contactId"`
	Subject       *string                   `json:"subject"`
	Archived      bool                      `json:"archived"`
	UnreadCount   int                       `json:"unreadCount"`
	LastMessageAt time.Time                 `json:"lastMessageAt"`
	Status        models.ConversationStatus `json:"status"`
	CreatedAt     time.Time                 `json:"createdAt"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
	LastMessage   *messageJSON              `json:"lastMessage,omitempty"`
	Messages      []*messageJSON            `json:"messages,omitempty"`
}

func toConversation(c *models.Conversation) *conversationJSON {
	out := &conversationJSON{
		ID:            c.ID,
		UserID:        c.UserID,
		ContactID:     c.ContactID,
		Subject:       c.Subject,
		Archived:      c.Archived,
		UnreadCount:   c.UnreadCount,
		LastMessageAt: c.LastMessageAt,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		LastMessage:   toMessage(c.LastMessage),
	}
	if c.Messages != nil {
		out.Messages = make([]*messageJSON, 0, len(c.Messages))
		for _, m := range c.Messages {
			out.Messages = append(out.Messages, toMessage(m))
		}
	}
	return out
}
