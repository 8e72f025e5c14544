package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/taskdeck/taskdeck/pkg/domain"
)

// RateLimitsRepository persists per-identifier login failure counters.
// Counters live in the shared store, not process memory, so the lockout
// holds across stateless instances.
type RateLimitsRepository struct {
	db *sql.DB
}

// NewRateLimitsRepository creates a new rate limits repository.
func NewRateLimitsRepository(db *sql.DB) *RateLimitsRepository {
	return &RateLimitsRepository{db: db}
}

// Get retrieves the failure record for an identifier. Returns (nil, nil)
// when no failures are on record.
func (r *RateLimitsRepository) Get(ctx context.Context, email string) (*domain.FailureRecord, error) {
	query := `
		SELECT email, failed_attempts, last_attempt, locked_until, created_at
		FROM rate_limits
		WHERE email = $1
	`
	rec := &domain.FailureRecord{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&rec.Email, &rec.FailedAttempts, &rec.LastAttempt, &rec.LockedUntil, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Increment records one failed attempt in a single atomic statement. When
// the incremented count reaches the threshold, the same statement sets
// locked_until, so concurrent failures can never slip past the limit via a
// read-then-write race. Both arms of the upsert carry the lock decision, so
// a threshold of 1 locks on the very first failure.
func (r *RateLimitsRepository) Increment(ctx context.Context, email string, threshold int, lockFor time.Duration) error {
	query := `
		INSERT INTO rate_limits (email, failed_attempts, last_attempt, locked_until, created_at)
		VALUES ($1, 1, NOW(),
		    CASE WHEN 1 >= $2 THEN NOW() + make_interval(secs => $3) END,
		    NOW())
		ON CONFLICT (email) DO UPDATE
		SET failed_attempts = rate_limits.failed_attempts + 1,
		    last_attempt = NOW(),
		    locked_until = CASE
		        WHEN rate_limits.failed_attempts + 1 >= $2 THEN NOW() + make_interval(secs => $3)
		        ELSE rate_limits.locked_until
		    END
	`
	_, err := r.db.ExecContext(ctx, query, email, threshold, lockFor.Seconds())
	return err
}

// Delete clears the failure record for an identifier after a successful login.
func (r *RateLimitsRepository) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE email = $1`, email)
	return err
}

// DeleteExpired removes records whose lockout lapsed more than the given
// grace period ago, plus unlocked records with no recent activity. This is
// storage hygiene only; correctness never depends on it running.
func (r *RateLimitsRepository) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	query := `
		DELETE FROM rate_limits
		WHERE (locked_until IS NOT NULL AND locked_until < NOW() - make_interval(secs => $1))
		   OR (locked_until IS NULL AND last_attempt < NOW() - make_interval(secs => $1))
	`
	res, err := r.db.ExecContext(ctx, query, grace.Seconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
