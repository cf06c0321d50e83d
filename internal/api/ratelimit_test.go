package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManualLimiter(t *testing.T, rate int, interval time.Duration, burst int) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(rate, interval, burst)
	t.Cleanup(rl.Stop)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_Burst(t *testing.T) {
	rl, _ := newManualLimiter(t, 1, time.Minute, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// Buckets are per client
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, now := newManualLimiter(t, 2, time.Minute, 3)

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("ip"))
	}
	require.False(t, rl.Allow("ip"))

	// A partial interval adds nothing
	*now = now.Add(59 * time.Second)
	assert.False(t, rl.Allow("ip"))

	// The remainder carries over: one more second completes the interval
	*now = now.Add(time.Second)
	assert.True(t, rl.Allow("ip"))
	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))

	// Refill is capped at burst
	*now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("ip"))
	}
	assert.False(t, rl.Allow("ip"))
}

func TestRateLimiter_Reset(t *testing.T) {
	rl, _ := newManualLimiter(t, 1, time.Minute, 1)

	require.True(t, rl.Allow("ip"))
	require.False(t, rl.Allow("ip"))
	rl.Reset()
	assert.True(t, rl.Allow("ip"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, _ := newManualLimiter(t, 1, time.Minute, 1)

	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Too many requests", body["error"])
	assert.Equal(t, float64(60), body["retry_after"])
}
