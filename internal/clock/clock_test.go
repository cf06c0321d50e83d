package clock

import (
	"testing"
	"time"
)

// =============================================================================
// RealClock tests
// =============================================================================

func TestRealClock_Now(t *testing.T) {
	c := NewRealClock()

	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	c := NewRealClock()
	start := c.Now()
	time.Sleep(5 * time.Millisecond)

	if d := c.Since(start); d < 5*time.Millisecond {
		t.Errorf("Since() = %v, want >= 5ms", d)
	}
}

func TestRealClock_AfterFunc(t *testing.T) {
	c := NewRealClock()
	done := make(chan struct{})

	c.AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc callback was not called")
	}
}

func TestRealClock_AfterFunc_Stop(t *testing.T) {
	c := NewRealClock()
	fired := make(chan struct{}, 1)

	timer := c.AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} })
	if !timer.Stop() {
		t.Fatal("Stop() should return true for a pending timer")
	}

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}

	if timer.Stop() {
		t.Error("second Stop() should return false")
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) != Default {
		t.Error("OrDefault(nil) should return Default")
	}
	c := NewRealClock()
	if OrDefault(c) != Clock(c) {
		t.Error("OrDefault(c) should return c")
	}
}
