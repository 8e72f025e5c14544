package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTitleLength is the upper bound on task titles, in characters.
const MaxTitleLength = 500

// MaxTaskListSize caps how many tasks a single list operation returns.
const MaxTaskListSize = 1000

// Task is a single to-do item. OwnerID never changes after creation.
type Task struct {
	ID          int64     `json:"task_id"`
	OwnerID     uuid.UUID `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusFilter selects which tasks a list operation returns.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

// Valid reports whether the filter is one of the accepted values.
func (s StatusFilter) Valid() bool {
	switch s {
	case StatusAll, StatusPending, StatusCompleted:
		return true
	}
	return false
}

// ValidateTitle checks a task title: non-empty after trimming and at most
// MaxTitleLength characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &titleError{"title cannot be empty"}
	}
	if len([]rune(title)) > MaxTitleLength {
		return &titleError{"title exceeds maximum length of 500 characters"}
	}
	return nil
}

type titleError struct{ msg string }

func (e *titleError) Error() string { return e.msg }
func (e *titleError) Unwrap() error { return ErrValidation }
