package domain

import (
	"context"
	"time"
)

// RateLimitRecord is the per-key counter state for one fixed window.
// A record is logically reset when its window has fully elapsed; it is
// physically deleted only by the idle sweep.
type RateLimitRecord struct {
	Count       int
	WindowStart time.Time
	LastRequest time.Time
}

// WindowEnd is when the record's window closes and the counter resets.
func (r RateLimitRecord) WindowEnd(window time.Duration) time.Time {
	return r.WindowStart.Add(window)
}

// RateLimitStore holds rate-limit records. Take must be atomic per key:
// lookup, window rollover, and increment happen as one step.
type RateLimitStore interface {
	// Take increments the counter for key in the current window and
	// returns the post-increment record. A key whose previous window has
	// elapsed starts a fresh record with count 1.
	Take(ctx context.Context, key string, window time.Duration) (RateLimitRecord, error)

	// Sweep deletes records whose last request predates cutoff and
	// returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
