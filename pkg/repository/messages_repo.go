package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/pkg/domain"
)

// MessagesRepository handles append-only message persistence. Ordering is by
// the seq column (a sequence assigned by the database), never by insertion
// order observed by any one client.
type MessagesRepository struct {
	db *sql.DB
}

// NewMessagesRepository creates a new messages repository.
func NewMessagesRepository(db *sql.DB) *MessagesRepository {
	return &MessagesRepository{db: db}
}

// Append stores a message and bumps the parent conversation's updated_at in
// the same transaction.
func (r *MessagesRepository) Append(ctx context.Context, conversationID uuid.UUID, role domain.Role, content string) (*domain.Message, error) {
	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		insert := `
			INSERT INTO messages (id, conversation_id, role, content, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING seq
		`
		if err := tx.QueryRowContext(ctx, insert,
			msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.CreatedAt,
		).Scan(&msg.Seq); err != nil {
			return err
		}

		bump := `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
		_, err := tx.ExecContext(ctx, bump, msg.ConversationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListBySeq returns all messages of a conversation in sequence order.
func (r *MessagesRepository) ListBySeq(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, seq, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Seq, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
