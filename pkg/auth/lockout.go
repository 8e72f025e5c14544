package auth

import (
	"context"
	"time"

	"github.com/taskdeck/taskdeck/pkg/domain"
)

// Lockout defaults: 5 failed attempts lock an identifier for 15 minutes.
const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 15 * time.Minute
)

// FailureStore persists failure counters. The Increment implementation must
// be atomic: the counter bump and the lockout decision happen in one
// compare-and-set, never as a read followed by a write.
type FailureStore interface {
	Get(ctx context.Context, email string) (*domain.FailureRecord, error)
	Increment(ctx context.Context, email string, threshold int, lockFor time.Duration) error
	Delete(ctx context.Context, email string) error
}

// Lockout tracks failed login attempts per identifier and reports when an
// identifier is locked out. It holds no state of its own; everything lives
// in the shared store.
type Lockout struct {
	store       FailureStore
	maxAttempts int
	lockFor     time.Duration
	now         func() time.Time
}

// NewLockout creates a lockout tracker. Zero values fall back to the defaults.
func NewLockout(store FailureStore, maxAttempts int, lockFor time.Duration) *Lockout {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFailedAttempts
	}
	if lockFor <= 0 {
		lockFor = DefaultLockoutDuration
	}
	return &Lockout{
		store:       store,
		maxAttempts: maxAttempts,
		lockFor:     lockFor,
		now:         time.Now,
	}
}

// Check reports whether the identifier may attempt a login. A locked
// identifier gets a LockedError carrying the remaining wait. The lock is
// self-expiring: once locked_until passes, Check allows again without any
// background sweep.
func (l *Lockout) Check(ctx context.Context, email string) error {
	rec, err := l.store.Get(ctx, email)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if retry := rec.RetryAfter(l.now()); retry > 0 {
		return &domain.LockedError{RetryAfter: retry}
	}
	return nil
}

// RecordFailure counts one failed attempt; the store locks the identifier
// atomically when the threshold is reached.
func (l *Lockout) RecordFailure(ctx context.Context, email string) error {
	return l.store.Increment(ctx, email, l.maxAttempts, l.lockFor)
}

// RecordSuccess clears the identifier's failure record.
func (l *Lockout) RecordSuccess(ctx context.Context, email string) error {
	return l.store.Delete(ctx, email)
}
