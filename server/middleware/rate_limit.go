package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults sized for a single learner clicking through exercises: bursts of
// quick submits are fine, sustained hammering is not.
const (
	defaultRatePerSecond = 10
	defaultBurst         = 20
)

// RateLimiter provides per-key rate limiting.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter

	every time.Duration
	burst int
}

// NewRateLimiter creates a rate limiter with the default rate.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(defaultRatePerSecond, defaultBurst)
}

// NewRateLimiterWithConfig creates a rate limiter allowing ratePerSecond
// sustained requests with the given burst per key.
func NewRateLimiterWithConfig(ratePerSecond, burst int) *RateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = defaultRatePerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		every:  time.Second / time.Duration(ratePerSecond),
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Every(rl.every), rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}
