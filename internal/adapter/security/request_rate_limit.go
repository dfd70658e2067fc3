package security

/*
				Calliper Security Adapter - Rate Limit Validator
	RateLimitValidator enforces fixed-window per-client limits on top of a
	RateLimitStore, with an optional token-bucket global limiter in front of
	it. Every request increments the window counter, including requests that
	end up denied, so a client hammering the API never sees its window renew
	early. Health check endpoints get their own limit and their own window.

	It's thread-safe and designed for high-throughput environments.

	References:
	- https://pkg.go.dev/golang.org/x/time/rate
	- https://datatracker.ietf.org/doc/draft-ietf-httpapi-ratelimit-headers/
*/

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/calliperhq/calliper/internal/config"
	"github.com/calliperhq/calliper/internal/core/ports"
	"github.com/calliperhq/calliper/internal/logger"
	"golang.org/x/time/rate"
)

type RateLimitValidator struct {
	store         ports.RateLimitStore
	globalLimiter *rate.Limiter
	logger        *logger.StyledLogger

	policy                  ports.RateLimitPolicy
	healthRequestsPerMinute int

	// keyScope separates limiter state between gateways that share a store
	// but run different policies.
	keyScope string
}

func NewRateLimitValidator(store ports.RateLimitStore, policy ports.RateLimitPolicy, limits config.ServerRateLimits, keyScope string, logger *logger.StyledLogger) *RateLimitValidator {
	rl := &RateLimitValidator{
		store:                   store,
		policy:                  policy,
		healthRequestsPerMinute: limits.HealthRequestsPerMinute,
		keyScope:                keyScope,
		logger:                  logger,
	}

	if rl.policy.Window <= 0 {
		rl.policy.Window = time.Minute
	}

	if limits.GlobalRequestsPerMinute > 0 {
		globalRate := rate.Limit(float64(limits.GlobalRequestsPerMinute) / 60.0)
		burst := limits.BurstSize
		if burst <= 0 {
			burst = limits.GlobalRequestsPerMinute
		}
		rl.globalLimiter = rate.NewLimiter(globalRate, burst)
	}

	return rl
}

func (rl *RateLimitValidator) Name() string {
	return "rate_limit"
}

// Validate checks if the request should be allowed under current rate limits.
// It applies the global limiter first, then the per-client fixed window.
// Thread safe.
func (rl *RateLimitValidator) Validate(ctx context.Context, req ports.SecurityRequest) (ports.SecurityResult, error) {
	now := time.Now()

	limit := rl.policy.MaxRequests
	window := rl.policy.Window
	if req.IsHealthCheck {
		limit = rl.healthRequestsPerMinute
		window = time.Minute
	}

	if limit <= 0 {
		return ports.SecurityResult{Allowed: true}, nil
	}

	if rl.globalLimiter != nil && !req.IsHealthCheck {
		if !rl.globalLimiter.Allow() {
			return ports.SecurityResult{
				Allowed:    false,
				Reason:     "Rate limit exceeded",
				StatusCode: http.StatusTooManyRequests,
				RetryAfter: 1,
				RateLimit:  limit,
				Remaining:  0,
				ResetTime:  now.Add(window),
			}, nil
		}
	}

	key := req.ClientID
	if rl.keyScope != "" {
		key += "|" + rl.keyScope
	}
	if req.IsHealthCheck {
		key += ":health"
	}

	count, resetTime, err := rl.store.Increment(ctx, key, window)
	if err != nil {
		return ports.SecurityResult{}, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(limit) {
		return ports.SecurityResult{
			Allowed:    false,
			Reason:     "Rate limit exceeded",
			StatusCode: http.StatusTooManyRequests,
			RetryAfter: retryAfterSeconds(now, resetTime),
			RateLimit:  limit,
			Remaining:  0,
			ResetTime:  resetTime,
		}, nil
	}

	return ports.SecurityResult{
		Allowed:   true,
		RateLimit: limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}, nil
}

func (rl *RateLimitValidator) Stop() {
	if rl.store != nil {
		rl.store.Stop()
	}
}

// retryAfterSeconds rounds up so clients never retry a second early.
func retryAfterSeconds(now, resetTime time.Time) int {
	seconds := int(math.Ceil(resetTime.Sub(now).Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
