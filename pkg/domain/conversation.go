package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation groups messages for a single owner. UpdatedAt is bumped on
// every appended message.
type Conversation struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation. Ordering within a conversation is
// by Seq, a monotonic sequence assigned by the store, never by append order.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Seq            int64
	Role           Role
	Content        string
	CreatedAt      time.Time
}
