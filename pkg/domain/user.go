package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account. The identity record is owned by the
// credential system; everything else in this module treats it as read-only.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPassword stores password credentials separately from the user profile.
type UserPassword struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}
