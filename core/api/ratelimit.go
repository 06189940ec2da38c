// Package api implements the content-host API client.
// All requests funnel through a shared rate limiter because the host
// enforces a minimum delay between calls.
package api

import (
	"context"
	"sync"
	"time"
)

// RateLimiter serializes callers so that no two requests fire closer
// together than the configured delay. The mutex is held across the
// wait itself; two concurrent callers can never both observe a stale
// last-call time and proceed together.
type RateLimiter struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

// NewRateLimiter creates a RateLimiter with the given minimum spacing.
// A zero or negative delay disables the wait but keeps serialization.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{delay: delay}
}

// Acquire blocks until the caller's slot opens, or until ctx is done.
// On success the caller owns the next request slot.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wait := r.delay - time.Since(r.last); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.last = time.Now()
	return nil
}
