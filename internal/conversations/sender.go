package conversations

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/models"
)

var ErrSendFailed = errors.New("failed to deliver message")

// Sender delivers a message to the conversation's contact over an external channel.
type Sender interface {
	Send(ctx context.Context, conversation *models.Conversation, message *models.Message) error
}

// LogSender records outbound messages in the log. No external channel is wired yet.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, conversation *models.Conversation, message *models.Message) error {
	log.Info().
		Str("conversation_id", conversation.ID.String()).
		Str("contact_id", conversation.ContactID.String()).
		Str("message_id", message.ID.String()).
		Int("length", len(message.Text)).
		Msg("Outbound message")
	return nil
}
