package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

// MemoryStore keeps configs in memory as JSON blobs. Storing serialized
// copies isolates callers from later mutations of the structs they passed
// in, matching the SQLite backend's behavior.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string][]byte
}

// NewMemoryStore creates an in-memory config store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string][]byte),
	}
}

// Get returns the config with the given id, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*config.FallbackConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.configs[id]
	if !ok {
		return nil, ErrNotFound
	}

	var fc config.FallbackConfig
	if err := json.Unmarshal(blob, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode config %q: %w", id, err)
	}
	return &fc, nil
}

// Put creates or replaces a config.
func (s *MemoryStore) Put(ctx context.Context, fc *config.FallbackConfig) error {
	if fc == nil || fc.ID == "" {
		return fmt.Errorf("config id cannot be empty")
	}

	blob, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to encode config %q: %w", fc.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[fc.ID] = blob
	return nil
}

// Delete removes a config, returning ErrNotFound when it does not exist.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[id]; !ok {
		return ErrNotFound
	}
	delete(s.configs, id)
	return nil
}

// List returns all stored configs.
func (s *MemoryStore) List(ctx context.Context) ([]*config.FallbackConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*config.FallbackConfig, 0, len(s.configs))
	for id, blob := range s.configs {
		var fc config.FallbackConfig
		if err := json.Unmarshal(blob, &fc); err != nil {
			return nil, fmt.Errorf("failed to decode config %q: %w", id, err)
		}
		out = append(out, &fc)
	}
	return out, nil
}

// Close releases nothing; present to satisfy the store interface.
func (s *MemoryStore) Close() error {
	return nil
}
