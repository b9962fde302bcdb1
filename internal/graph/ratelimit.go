package graph

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MinQPS is the minimum allowed QPS.
const MinQPS = 0.1

// throttleRecoveryFactor is the multiplier applied to the rate while a
// throttle window is active.
const throttleRecoveryFactor = 0.5

// RateLimiter paces Graph calls with a token bucket and supports adaptive
// throttling when Graph answers 429/503. It is safe for concurrent use.
type RateLimiter struct {
	mu             sync.Mutex
	limiter        *rate.Limiter
	baseRate       rate.Limit
	throttledUntil time.Time
	now            func() time.Time
	after          func(time.Duration) <-chan time.Time
}

// NewRateLimiter creates a rate limiter allowing qps requests per second
// with a burst of max(1, qps). qps is clamped to MinQPS.
func NewRateLimiter(qps float64) *RateLimiter {
	if qps < MinQPS {
		qps = MinQPS
	}
	burst := int(qps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(qps), burst),
		baseRate: rate.Limit(qps),
		now:      time.Now,
		after:    time.After,
	}
}

// Acquire blocks until a request may be sent.
// Returns an error if the context is cancelled.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		wait := r.throttleRemaining()
		if wait <= 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(wait):
		}
	}
	return r.limiter.Wait(ctx)
}

// throttleRemaining returns how long the current throttle window lasts and
// restores the base rate once it has expired.
func (r *RateLimiter) throttleRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Before(r.throttledUntil) {
		return r.throttledUntil.Sub(now)
	}
	if !r.throttledUntil.IsZero() {
		r.limiter.SetLimitAt(now, r.baseRate)
		r.throttledUntil = time.Time{}
	}
	return 0
}

// Throttle pauses acquisition for duration and halves the rate until the
// window expires. An existing longer window is not shortened.
func (r *RateLimiter) Throttle(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	end := now.Add(duration)
	if end.After(r.throttledUntil) {
		r.throttledUntil = end
	}
	r.limiter.SetLimitAt(now, r.baseRate*throttleRecoveryFactor)
}

// Throttled reports whether a throttle window is active.
func (r *RateLimiter) Throttled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Before(r.throttledUntil)
}

// Limit returns the current request rate.
func (r *RateLimiter) Limit() rate.Limit {
	return r.limiter.Limit()
}
