package domain

import "time"

// FailureRecord tracks failed login attempts for one login identifier.
// A record exists only while there are failures to remember: it is created
// on the first failure and deleted on a successful login.
type FailureRecord struct {
	Email          string
	FailedAttempts int
	LastAttempt    time.Time
	LockedUntil    *time.Time
	CreatedAt      time.Time
}

// IsLocked reports whether the identifier is locked at the given instant.
func (r *FailureRecord) IsLocked(now time.Time) bool {
	if r.LockedUntil == nil {
		return false
	}
	return now.Before(*r.LockedUntil)
}

// RetryAfter returns how long until the lockout expires. Zero when the
// record is not locked.
func (r *FailureRecord) RetryAfter(now time.Time) time.Duration {
	if !r.IsLocked(now) {
		return 0
	}
	return r.LockedUntil.Sub(now)
}
