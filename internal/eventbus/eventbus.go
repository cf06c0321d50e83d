package eventbus

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/domain"
	"github.com/mescon/Hassarr/internal/logger"
)

// Publisher defines the interface for publishing events.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Subscribe(eventType domain.EventType, handler func(domain.Event))
}

var _ Publisher = (*EventBus)(nil)

// subscriberBuffer bounds each subscriber channel; a full channel drops events.
const subscriberBuffer = 100

// EventBus persists events to the events table, then fans them out to
// subscribers of that type and to catch-all subscribers.
type EventBus struct {
	db          *sql.DB
	subscribers map[domain.EventType][]chan domain.Event
	all         []chan domain.Event
	dropped     func(domain.Event)
	mu          sync.RWMutex
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewEventBus returns a bus writing to database. A nil database skips
// persistence.
func NewEventBus(database *sql.DB) *EventBus {
	return &EventBus{
		db:          database,
		subscribers: make(map[domain.EventType][]chan domain.Event),
		stopChan:    make(chan struct{}),
	}
}

// OnDrop registers a callback for events a full subscriber could not take.
func (eb *EventBus) OnDrop(fn func(domain.Event)) {
	eb.mu.Lock()
	eb.dropped = fn
	eb.mu.Unlock()
}

func (eb *EventBus) Publish(ctx context.Context, event domain.Event) error {
	logger.Debugf("EventBus: Publishing event %s (AggregateID: %s)", event.EventType, event.AggregateID)

	if eb.db != nil {
		if _, err := db.InsertEvent(ctx, eb.db, &event); err != nil {
			return fmt.Errorf("failed to persist event: %w", err)
		}
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	targets := append(append([]chan domain.Event{}, eb.subscribers[event.EventType]...), eb.all...)
	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			if eb.dropped != nil {
				eb.dropped(event)
			}
		}
	}

	return nil
}

// Subscribe calls handler for every event of eventType, on its own goroutine.
func (eb *EventBus) Subscribe(eventType domain.EventType, handler func(domain.Event)) {
	ch := make(chan domain.Event, subscriberBuffer)

	eb.mu.Lock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	eb.mu.Unlock()

	eb.run(ch, handler)
}

// SubscribeAll calls handler for every published event.
func (eb *EventBus) SubscribeAll(handler func(domain.Event)) {
	ch := make(chan domain.Event, subscriberBuffer)

	eb.mu.Lock()
	eb.all = append(eb.all, ch)
	eb.mu.Unlock()

	eb.run(ch, handler)
}

func (eb *EventBus) run(ch chan domain.Event, handler func(domain.Event)) {
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		for {
			select {
			case event := <-ch:
				handler(event)
			case <-eb.stopChan:
				return
			}
		}
	}()
}

// Shutdown stops all subscriber goroutines and waits for them to finish
func (eb *EventBus) Shutdown() {
	eb.stopOnce.Do(func() { close(eb.stopChan) })
	eb.wg.Wait()
	logger.Infof("EventBus shutdown complete")
}
