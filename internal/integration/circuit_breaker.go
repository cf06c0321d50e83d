package integration

import (
	"errors"
	"sync"
	"time"

	"github.com/mescon/Hassarr/internal/clock"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state - requests are allowed.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects requests until ResetTimeout has elapsed.
	CircuitOpen
	// CircuitHalfOpen lets probe requests through to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit is open and requests are rejected.
var ErrCircuitOpen = errors.New("circuit breaker is open: service unavailable")

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening. Default: 5
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a probe. Default: 30s
	ResetTimeout time.Duration
	// SuccessThreshold is the number of half-open successes needed to close. Default: 2
	SuccessThreshold int
	// Clock drives the open timeout. Default: real time.
	Clock clock.Clock
	// OnStateChange is called (outside the lock) whenever the state changes.
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns sensible defaults for the circuit breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker guards one upstream service (Overseerr, Radarr or Sonarr).
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	clock  clock.Clock

	mu              sync.Mutex
	state           CircuitState
	failures        int
	successes       int
	openedAt        time.Time
	lastFailureTime time.Time
	lastStateChange time.Time
	totalFailures   int64
	totalSuccesses  int64
	totalRejected   int64
}

// NewCircuitBreaker creates a breaker for the named service. Invalid config
// values are replaced by the defaults.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = def.ResetTimeout
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	c := clock.OrDefault(config.Clock)
	return &CircuitBreaker{
		name:            name,
		config:          config,
		clock:           c,
		state:           CircuitClosed,
		lastStateChange: c.Now(),
	}
}

// Name returns the service the breaker guards.
func (cb *CircuitBreaker) Name() string { return cb.name }

// transition must be called with mu held; it returns a notification to run after unlock.
func (cb *CircuitBreaker) transition(to CircuitState) func() {
	from := cb.state
	if from == to {
		return func() {}
	}
	cb.state = to
	cb.lastStateChange = cb.clock.Now()
	if to == CircuitOpen {
		cb.openedAt = cb.lastStateChange
	}
	if cb.config.OnStateChange == nil {
		return func() {}
	}
	hook, name := cb.config.OnStateChange, cb.name
	return func() { hook(name, from, to) }
}

// Allow reports whether a request may proceed. An open breaker moves to
// half-open once ResetTimeout has elapsed since it opened.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	notify := func() {}
	allowed := true
	switch cb.state {
	case CircuitOpen:
		if cb.clock.Since(cb.openedAt) >= cb.config.ResetTimeout {
			notify = cb.transition(CircuitHalfOpen)
			cb.successes = 0
		} else {
			cb.totalRejected++
			allowed = false
		}
	}
	cb.mu.Unlock()
	notify()
	return allowed
}

// RecordSuccess records a successful request, potentially closing the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	notify := func() {}
	cb.totalSuccesses++
	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			notify = cb.transition(CircuitClosed)
			cb.failures = 0
			cb.successes = 0
		}
	case CircuitOpen:
		notify = cb.transition(CircuitHalfOpen)
		cb.successes = 1
	}
	cb.mu.Unlock()
	notify()
}

// RecordFailure records a failed request, potentially opening the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	notify := func() {}
	cb.totalFailures++
	cb.failures++
	cb.successes = 0
	cb.lastFailureTime = cb.clock.Now()
	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.config.FailureThreshold {
			notify = cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		notify = cb.transition(CircuitOpen)
	}
	cb.mu.Unlock()
	notify()
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerStats is a point-in-time snapshot for monitoring.
type CircuitBreakerStats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureTime     time.Time `json:"last_failure_time"`
	LastStateChange     time.Time `json:"last_state_change"`
	TotalFailures       int64     `json:"total_failures"`
	TotalSuccesses      int64     `json:"total_successes"`
	TotalRejected       int64     `json:"total_rejected"`
}

// Stats returns statistics about the circuit breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		Name:                cb.name,
		State:               cb.state.String(),
		ConsecutiveFailures: cb.failures,
		LastFailureTime:     cb.lastFailureTime,
		LastStateChange:     cb.lastStateChange,
		TotalFailures:       cb.totalFailures,
		TotalSuccesses:      cb.totalSuccesses,
		TotalRejected:       cb.totalRejected,
	}
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	notify := cb.transition(CircuitClosed)
	cb.failures = 0
	cb.successes = 0
	cb.mu.Unlock()
	notify()
}

// CircuitBreakerRegistry hands out one breaker per upstream service name.
type CircuitBreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	config   CircuitBreakerConfig
}

// NewCircuitBreakerRegistry creates a registry with the given default configuration.
func NewCircuitBreakerRegistry(config CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *CircuitBreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok = r.breakers[name]; ok {
		return cb
	}
	cb = NewCircuitBreaker(name, r.config)
	r.breakers[name] = cb
	return cb
}

// AllStats returns statistics for all circuit breakers, keyed by service name.
func (r *CircuitBreakerRegistry) AllStats() map[string]CircuitBreakerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]CircuitBreakerStats, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.Stats()
	}
	return stats
}

// ResetAll resets all circuit breakers to closed state.
func (r *CircuitBreakerRegistry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cb := range r.breakers {
		cb.Reset()
	}
}
