package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter implements a token bucket rate limiter per IP address
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	burst    int           // max tokens (bucket size)
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type clientBucket struct {
	tokens    int
	lastCheck time.Time
}

// NewRateLimiter creates a rate limiter with specified rate (requests per interval) and burst size
func NewRateLimiter(rate int, interval time.Duration, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*clientBucket),
		rate:     rate,
		interval: interval,
		burst:    burst,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request from the given IP should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	bucket, exists := rl.clients[ip]
	if !exists {
		// New client starts with full bucket, minus this request
		rl.clients[ip] = &clientBucket{tokens: rl.burst - 1, lastCheck: now}
		return true
	}

	// Whole intervals only; the remainder carries over to the next check
	intervals := int(now.Sub(bucket.lastCheck) / rl.interval)
	if intervals > 0 {
		bucket.tokens += intervals * rl.rate
		if bucket.tokens > rl.burst {
			bucket.tokens = rl.burst
		}
		bucket.lastCheck = bucket.lastCheck.Add(time.Duration(intervals) * rl.interval)
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// Reset forgets every client.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	rl.clients = make(map[string]*clientBucket)
	rl.mu.Unlock()
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup removes entries idle for 10 minutes
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			threshold := rl.now().Add(-10 * time.Minute)
			for ip, bucket := range rl.clients {
				if bucket.lastCheck.Before(threshold) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware returns a Gin middleware that rate limits requests
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": rl.interval.Seconds(),
			})
			return
		}
		c.Next()
	}
}

// Global rate limiters for different endpoints
var (
	// LoginLimiter: 5 attempts per minute against password guessing
	LoginLimiter = NewRateLimiter(5, time.Minute, 5)

	// SetupLimiter: setup happens once, so 3 per minute is plenty
	SetupLimiter = NewRateLimiter(3, time.Minute, 3)

	// APILimiter: 300 requests per minute per IP, burst of 100. Dashboards
	// poll sensors and assistants fire service calls in bursts.
	APILimiter = NewRateLimiter(300, time.Minute, 100)
)
