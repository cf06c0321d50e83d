package integration

import (
	"context"
	"sync"
	"time"

	"github.com/mescon/Hassarr/internal/clock"
)

// RateLimiter is a token bucket shared by all calls to one upstream service.
type RateLimiter struct {
	mu         sync.Mutex
	clock      clock.Clock
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter with specified RPS and burst size.
// A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int, c clock.Clock) *RateLimiter {
	c = clock.OrDefault(c)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clock:      c,
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rps,
		lastRefill: c.Now(),
	}
}

// take refills the bucket and either consumes a token or returns how long
// until one is available.
func (r *RateLimiter) take() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.tokens += now.Sub(r.lastRefill).Seconds() * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = now

	if r.tokens >= 1 {
		r.tokens--
		return 0, true
	}
	return time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second)), false
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.refillRate <= 0 {
		return ctx.Err()
	}
	for {
		wait, ok := r.take()
		if ok {
			return nil
		}

		ready := make(chan struct{})
		t := r.clock.AfterFunc(wait, func() { close(ready) })
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-ready:
		}
	}
}
