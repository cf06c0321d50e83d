// Package testutil provides test utilities including mocks, fixtures, and test database helpers.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mescon/Hassarr/internal/clock"
	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/eventbus"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/metrics"
)

// =============================================================================
// MockClock - Testable time abstraction
// =============================================================================

// MockClock implements clock.Clock for testing, providing deterministic control
// over time-dependent operations like add cool-downs.
type MockClock struct {
	mu           sync.Mutex
	now          time.Time
	pendingFuncs []pendingFunc
}

type pendingFunc struct {
	executeAt time.Time
	fn        func()
	stopped   bool
}

// MockTimer implements clock.Timer for testing.
type MockTimer struct {
	clock *MockClock
	index int
}

// Compile-time assertion that MockClock implements clock.Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a new MockClock with the current time as initial value.
func NewMockClock() *MockClock {
	return &MockClock{now: time.Now()}
}

// NewMockClockAt creates a new MockClock with a specific initial time.
func NewMockClockAt(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mock's current time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Since returns the mock time elapsed since t.
func (m *MockClock) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// SetNow sets the mock's current time without triggering pending functions.
func (m *MockClock) SetNow(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// AfterFunc schedules f to run once the mock time passes now+d.
func (m *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := len(m.pendingFuncs)
	m.pendingFuncs = append(m.pendingFuncs, pendingFunc{executeAt: m.now.Add(d), fn: f})
	return &MockTimer{clock: m, index: index}
}

// Advance moves time forward by d and runs every function that became due.
// Returns the number of functions executed.
func (m *MockClock) Advance(d time.Duration) int {
	m.mu.Lock()
	m.now = m.now.Add(d)
	var toExecute []func()
	for i := range m.pendingFuncs {
		pf := &m.pendingFuncs[i]
		if !pf.stopped && !pf.executeAt.After(m.now) {
			toExecute = append(toExecute, pf.fn)
			pf.stopped = true
		}
	}
	m.mu.Unlock()

	// Execute outside the lock to avoid deadlocks
	for _, fn := range toExecute {
		fn()
	}
	return len(toExecute)
}

// PendingCount returns the number of scheduled functions that haven't been
// executed or stopped.
func (m *MockClock) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, pf := range m.pendingFuncs {
		if !pf.stopped {
			count++
		}
	}
	return count
}

// Stop prevents the timer from firing. Returns true if the timer was stopped,
// false if it had already fired or been stopped.
func (t *MockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.index < len(t.clock.pendingFuncs) && !t.clock.pendingFuncs[t.index].stopped {
		t.clock.pendingFuncs[t.index].stopped = true
		return true
	}
	return false
}

// =============================================================================
// MockEventBus - in-memory eventbus.Publisher
// =============================================================================

// MockEventBus captures all published events and notifies subscribers
// synchronously.
type MockEventBus struct {
	mu              sync.Mutex
	PublishedEvents []domain.Event
	Subscribers     map[domain.EventType][]func(domain.Event)
	PublishErr      error
}

// Compile-time assertion that MockEventBus implements eventbus.Publisher
var _ eventbus.Publisher = (*MockEventBus)(nil)

// NewMockEventBus creates a new mock event bus.
func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		Subscribers: make(map[domain.EventType][]func(domain.Event)),
	}
}

// Publish stores the event and notifies subscribers synchronously. When
// PublishErr is set the event is dropped and the error returned.
func (m *MockEventBus) Publish(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	if m.PublishErr != nil {
		err := m.PublishErr
		m.mu.Unlock()
		return err
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	subscribers := m.Subscribers[event.EventType]
	m.mu.Unlock()

	for _, handler := range subscribers {
		handler(event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (m *MockEventBus) Subscribe(eventType domain.EventType, handler func(domain.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subscribers[eventType] = append(m.Subscribers[eventType], handler)
}

// GetEvents returns all published events of a given type.
func (m *MockEventBus) GetEvents(eventType domain.EventType) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Event
	for _, e := range m.PublishedEvents {
		if e.EventType == eventType {
			result = append(result, e)
		}
	}
	return result
}

// EventCount returns the number of events of a given type.
func (m *MockEventBus) EventCount(eventType domain.EventType) int {
	return len(m.GetEvents(eventType))
}

// LastEvent returns the most recently published event, or nil if none.
func (m *MockEventBus) LastEvent() *domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.PublishedEvents) == 0 {
		return nil
	}
	e := m.PublishedEvents[len(m.PublishedEvents)-1]
	return &e
}

// =============================================================================
// MockRecorder - captures service metrics
// =============================================================================

// MockRecorder records the metrics calls made by the service layer.
type MockRecorder struct {
	mu        sync.Mutex
	Calls     map[string]int // "service/action" -> count
	Refreshes []metrics.SensorValues
}

// NewMockRecorder creates an empty recorder.
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{Calls: map[string]int{}}
}

func (m *MockRecorder) RecordServiceCall(service, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[service+"/"+action]++
}

func (m *MockRecorder) RecordRefresh(v metrics.SensorValues) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refreshes = append(m.Refreshes, v)
}

// CallCount returns how often service returned action.
func (m *MockRecorder) CallCount(service, action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[service+"/"+action]
}

// LastRefresh returns the most recent refresh, if any.
func (m *MockRecorder) LastRefresh() (metrics.SensorValues, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Refreshes) == 0 {
		return metrics.SensorValues{}, false
	}
	return m.Refreshes[len(m.Refreshes)-1], true
}

// =============================================================================
// MockArr - configurable Radarr/Sonarr client
// =============================================================================

// ErrNotStubbed is returned by MockArr methods without a configured func.
var ErrNotStubbed = errors.New("mock method not stubbed")

// MockArr implements integration.ArrAPI. All methods delegate to the
// configurable function fields.
type MockArr struct {
	KindValue         string
	IsConfigured      bool
	QualityProfilesFn func(ctx context.Context) ([]integration.QualityProfile, error)
	RootFoldersFn     func(ctx context.Context) ([]integration.RootFolder, error)
	LookupFn          func(ctx context.Context, term string) ([]integration.ArrLookup, error)
	AddFn             func(ctx context.Context, item integration.ArrLookup, profileID int64) (*integration.ArrLookup, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one method invocation.
type MockCall struct {
	Method string
	Args   []interface{}
}

var _ integration.ArrAPI = (*MockArr)(nil)

func (m *MockArr) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Args: args})
}

// CallCount returns the number of times a method was called.
func (m *MockArr) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call of method.
func (m *MockArr) LastCall(method string) (MockCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == method {
			return m.calls[i], true
		}
	}
	return MockCall{}, false
}

func (m *MockArr) Kind() string     { return m.KindValue }
func (m *MockArr) Configured() bool { return m.IsConfigured }

func (m *MockArr) QualityProfiles(ctx context.Context) ([]integration.QualityProfile, error) {
	m.recordCall("QualityProfiles")
	if m.QualityProfilesFn != nil {
		return m.QualityProfilesFn(ctx)
	}
	return nil, ErrNotStubbed
}

func (m *MockArr) RootFolders(ctx context.Context) ([]integration.RootFolder, error) {
	m.recordCall("RootFolders")
	if m.RootFoldersFn != nil {
		return m.RootFoldersFn(ctx)
	}
	return nil, ErrNotStubbed
}

func (m *MockArr) Lookup(ctx context.Context, term string) ([]integration.ArrLookup, error) {
	m.recordCall("Lookup", term)
	if m.LookupFn != nil {
		return m.LookupFn(ctx, term)
	}
	return nil, ErrNotStubbed
}

func (m *MockArr) Add(ctx context.Context, item integration.ArrLookup, profileID int64) (*integration.ArrLookup, error) {
	m.recordCall("Add", item, profileID)
	if m.AddFn != nil {
		return m.AddFn(ctx, item, profileID)
	}
	return nil, ErrNotStubbed
}
