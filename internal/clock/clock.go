// Package clock abstracts time so cool-downs, refresh windows and breaker
// timeouts can be driven deterministically in tests.
package clock

import "time"

// Clock provides the current time and delayed callbacks.
type Clock interface {
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
}

// Timer represents a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the Timer from firing. Returns false if it already fired or was stopped.
	Stop() bool
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// NewRealClock creates a new RealClock.
func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Default is the clock used when a component is constructed without one.
var Default Clock = NewRealClock()

// OrDefault returns c, or Default when c is nil.
func OrDefault(c Clock) Clock {
	if c == nil {
		return Default
	}
	return c
}
