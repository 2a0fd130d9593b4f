// Package quota enforces the free plan's daily generation limit.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/studypal/internal/store"
)

// Counter stores per-user daily counts. store.UsageRepo and RedisCounter
// both satisfy it.
type Counter interface {
	Increment(ctx context.Context, userID, day string) (int, error)
	Count(ctx context.Context, userID, day string) (int, error)
}

// ExceededError is returned when a free user has used up today's quota.
type ExceededError struct {
	Limit int
	Day   string
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("daily limit of %d generations reached for %s", e.Limit, e.Day)
}

// Limiter charges one unit per generation to free users. Premium users and
// a non-positive limit are unlimited.
type Limiter struct {
	counter  Counter
	profiles store.ProfileRepo
	limit    int
	now      func() time.Time
}

// New creates a Limiter. profiles may be nil, in which case every user is
// treated as free.
func New(counter Counter, profiles store.ProfileRepo, limit int) *Limiter {
	return &Limiter{counter: counter, profiles: profiles, limit: limit, now: time.Now}
}

// Allow charges one generation to userID, or returns *ExceededError.
func (l *Limiter) Allow(ctx context.Context, userID string) error {
	unlimited, err := l.unlimited(ctx, userID)
	if err != nil || unlimited {
		return err
	}

	day := l.day()
	n, err := l.counter.Increment(ctx, userID, day)
	if err != nil {
		return fmt.Errorf("charging quota: %w", err)
	}
	if n > l.limit {
		return &ExceededError{Limit: l.limit, Day: day}
	}
	return nil
}

// Remaining reports how many generations userID has left today. It is -1
// for unlimited users.
func (l *Limiter) Remaining(ctx context.Context, userID string) (int, error) {
	unlimited, err := l.unlimited(ctx, userID)
	if err != nil {
		return 0, err
	}
	if unlimited {
		return -1, nil
	}
	n, err := l.counter.Count(ctx, userID, l.day())
	if err != nil {
		return 0, fmt.Errorf("reading quota: %w", err)
	}
	return max(l.limit-n, 0), nil
}

// Limit returns the configured daily limit.
func (l *Limiter) Limit() int {
	return l.limit
}

func (l *Limiter) unlimited(ctx context.Context, userID string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	if l.profiles == nil {
		return false, nil
	}
	p, err := l.profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading plan: %w", err)
	}
	return p.Plan == store.PlanPremium, nil
}

// day is the UTC calendar day, so every instance agrees on when the
// quota resets.
func (l *Limiter) day() string {
	return l.now().UTC().Format("2006-01-02")
}
