package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/responses"
)

const resultKeyPrefix = "last_"

// ResultStore keeps the latest result of every service in memory and
// writes it through to the database.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]json.RawMessage
	persist ResultPersister
}

// NewResultStore creates a store. persist may be nil for a memory-only store.
func NewResultStore(persist ResultPersister) *ResultStore {
	return &ResultStore{results: map[string]json.RawMessage{}, persist: persist}
}

// ResultKey returns the store key of a service name.
func ResultKey(service string) string {
	if strings.HasPrefix(service, resultKeyPrefix) {
		return service
	}
	return resultKeyPrefix + service
}

// Load replaces the in-memory results with the persisted ones.
func (s *ResultStore) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	loaded, err := s.persist.LoadServiceResults(ctx)
	if err != nil {
		return fmt.Errorf("failed to load service results: %w", err)
	}
	if loaded == nil {
		loaded = map[string]json.RawMessage{}
	}
	s.mu.Lock()
	s.results = loaded
	s.mu.Unlock()
	logger.Debugf("Loaded %d stored service results", len(loaded))
	return nil
}

// Put records r as the latest result of service. Persistence failures are
// logged; the in-memory value is kept.
func (s *ResultStore) Put(ctx context.Context, service string, r responses.Response) {
	data, err := json.Marshal(r)
	if err != nil {
		logger.Errorf("Failed to encode %s result: %v", service, err)
		return
	}
	key := ResultKey(service)

	s.mu.Lock()
	s.results[key] = data
	s.mu.Unlock()

	if s.persist == nil {
		return
	}
	if err := s.persist.SaveServiceResult(ctx, key, data); err != nil {
		logger.Errorf("Failed to persist %s: %v", key, err)
	}
}

// Get returns the latest result of service.
func (s *ResultStore) Get(service string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[ResultKey(service)]
	return r, ok
}

// All returns a copy of every stored result keyed by store key.
func (s *ResultStore) All() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}
