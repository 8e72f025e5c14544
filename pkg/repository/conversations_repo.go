package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/pkg/domain"
)

// ConversationsRepository handles conversation persistence. Reads are always
// conditioned on the owner, matching the tasks repository's isolation rule.
type ConversationsRepository struct {
	db *sql.DB
}

// NewConversationsRepository creates a new conversations repository.
func NewConversationsRepository(db *sql.DB) *ConversationsRepository {
	return &ConversationsRepository{db: db}
}

// Create starts a new conversation for the owner.
func (r *ConversationsRepository) Create(ctx context.Context, owner uuid.UUID) (*domain.Conversation, error) {
	now := time.Now()
	conv := &domain.Conversation{
		ID:        uuid.New(),
		OwnerID:   owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	query := `
		INSERT INTO conversations (id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, conv.ID, conv.OwnerID, conv.CreatedAt, conv.UpdatedAt); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get retrieves a conversation by id, scoped to its owner.
func (r *ConversationsRepository) Get(ctx context.Context, id, owner uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, owner_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND owner_id = $2
	`
	conv := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, query, id, owner).Scan(
		&conv.ID, &conv.OwnerID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}
