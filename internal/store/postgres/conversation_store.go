package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// ConversationStore implements store.ConversationStore using PostgreSQL.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

func (s *ConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (
			id, user_id, contact_id, subject, archived, unread_count,
			last_message_at, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.UserID, c.ContactID, c.Subject, c.Archived, c.UnreadCount,
		c.LastMessageAt, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", mapPostgresError(err))
	}
	return nil
}

// ListByUser uses a lateral join to pick each conversation's latest message.
func (s *ConversationStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	query := `
		SELECT
			c.id, c.user_id, c.contact_id, c.subject, c.archived, c.unread_count,
			c.last_message_at, c.status, c.created_at, c.updated_at,
			m.id, m.sender_id, m.text, m.timestamp, m.status
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, text, timestamp, status
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY timestamp DESC, id DESC
			LIMIT 1
		) m ON TRUE
		WHERE c.user_id = $1
		ORDER BY c.last_message_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var result []*models.Conversation
	for rows.Next() {
		var (
			c         models.Conversation
			msgID     *uuid.UUID
			senderID  *uuid.UUID
			text      *string
			timestamp *time.Time
			status    *string
		)
		err := rows.Scan(
			&c.ID, &c.UserID, &c.ContactID, &c.Subject, &c.Archived, &c.UnreadCount,
			&c.LastMessageAt, &c.Status, &c.CreatedAt, &c.UpdatedAt,
			&msgID, &senderID, &text, &timestamp, &status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if msgID != nil {
			c.LastMessage = &models.Message{
				ID:             *msgID,
				ConversationID: c.ID,
				SenderID:       *senderID,
				Text:           *text,
				Timestamp:      *timestamp,
				Status:         models.MessageStatus(*status),
			}
		}
		result = append(result, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return result, nil
}

func (s *ConversationStore) Get(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, contact_id, subject, archived, unread_count,
			last_message_at, status, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`, conversationID).Scan(
		&c.ID, &c.UserID, &c.ContactID, &c.Subject, &c.Archived, &c.UnreadCount,
		&c.LastMessageAt, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, text, timestamp, status
		FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	c.Messages, err = pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}

	return &c, nil
}

func scanMessage(row pgx.CollectableRow) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Timestamp, &m.Status)
	return &m, err
}

func (s *ConversationStore) Archive(ctx context.Context, userID, conversationID uuid.UUID) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE conversations
		SET archived = TRUE, updated_at = $3
		WHERE id = $1 AND user_id = $2
	`, conversationID, userID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to archive conversation: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (s *ConversationStore) CreateMessage(ctx context.Context, m *models.Message) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, text, timestamp, status)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.ConversationID, m.SenderID, m.Text, m.Timestamp, m.Status)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE conversations
			SET last_message_at = GREATEST(last_message_at, $2), updated_at = now()
			WHERE id = $1
		`, m.ConversationID, m.Timestamp)
		return err
	})
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrConversationNotFound) {
			return store.ErrConversationNotFound
		}
		return fmt.Errorf("failed to create message: %w", mapped)
	}
	return nil
}

func (s *ConversationStore) GetMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, text, timestamp, status
		FROM messages
		WHERE id = $1
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func (s *ConversationStore) UpdateMessageStatus(ctx context.Context, messageID uuid.UUID, status models.MessageStatus) error {
	result, err := s.pool.Exec(ctx, `UPDATE messages SET status = $2 WHERE id = $1`, messageID, status)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrMessageNotFound
	}
	return nil
}

// DeleteMessage removes the message and moves LastMessageAt back to the newest remaining message.
// A conversation left without messages keeps its current LastMessageAt.
func (s *ConversationStore) DeleteMessage(ctx context.Context, messageID uuid.UUID) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var conversationID uuid.UUID
		err := tx.QueryRow(ctx, `DELETE FROM messages WHERE id = $1 RETURNING conversation_id`, messageID).Scan(&conversationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrMessageNotFound
			}
			return fmt.Errorf("failed to delete message: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE conversations
			SET last_message_at = COALESCE(
				(SELECT max(timestamp) FROM messages WHERE conversation_id = $1),
				last_message_at
			), updated_at = now()
			WHERE id = $1
		`, conversationID)
		if err != nil {
			return fmt.Errorf("failed to update conversation after delete: %w", err)
		}
		return nil
	})
}
