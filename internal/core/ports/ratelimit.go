package ports

import (
	"context"
	"time"
)

// RateLimitStore is the fixed-window counter table behind the rate limiter.
// Increment bumps the counter for key, creating or resetting the window as
// needed, and reports the post-increment count together with the instant the
// window ends. Every call counts toward the window; there is no peek.
//
// Implementations must serialise the read-increment-write sequence per key.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetTime time.Time, err error)

	// Stop releases any background resources (sweep goroutines, connections).
	// Safe to call more than once.
	Stop()
}

// RateLimitPolicy is the per-gateway quota: MaxRequests admitted per Window.
type RateLimitPolicy struct {
	MaxRequests int
	Window      time.Duration
}
