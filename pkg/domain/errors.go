package domain

import (
	"errors"
	"fmt"
	"time"
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Task and conversation errors
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Validation errors wrap ErrValidation so handlers can match the whole
// class with errors.Is while still surfacing the specific message.
var ErrValidation = errors.New("validation error")

// Upstream errors
var (
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrTurnTimeout         = errors.New("chat turn exceeded time budget")
)

// LockedError reports an engaged login lockout together with how long the
// caller has to wait. It matches ErrAccountLocked under errors.Is.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
