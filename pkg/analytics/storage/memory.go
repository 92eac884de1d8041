package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
)

// MemoryStore implements the event store with an in-memory per-chain slice.
// Intended for tests and single-process deployments without durability
// requirements.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]*analytics.Event
}

// NewMemoryStore creates an in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string][]*analytics.Event),
	}
}

// Append persists one event.
func (s *MemoryStore) Append(ctx context.Context, event *analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copyEvent := *event
	s.events[event.ChainID] = append(s.events[event.ChainID], &copyEvent)
	return nil
}

// List returns the most recent events for a chain, newest first.
func (s *MemoryStore) List(ctx context.Context, chainID string, limit int) ([]*analytics.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}

	events := s.events[chainID]
	out := make([]*analytics.Event, 0, min(limit, len(events)))
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		copyEvent := *events[i]
		out = append(out, &copyEvent)
	}
	// Callers may record events with explicit out-of-order timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Prune deletes events older than the cutoff.
func (s *MemoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for chainID, events := range s.events {
		kept := events[:0]
		for _, e := range events {
			if e.Timestamp.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, e)
		}
		s.events[chainID] = kept
	}
	return deleted, nil
}

// Close releases nothing; present to satisfy the store interface.
func (s *MemoryStore) Close() error {
	return nil
}
