package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe name to Provider mapping. The orchestrator and
// health monitor resolve providers through the registry so that a
// configuration reload can swap adapters without restarting either.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds or replaces a provider under its name. A replaced provider
// is closed before being dropped.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.providers[p.Name()]; ok && old != p {
		old.Close()
	}
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Close closes every registered provider and clears the registry.
// The first error encountered is returned; remaining providers are
// still closed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing provider %q: %w", name, err)
		}
		delete(r.providers, name)
	}
	return firstErr
}
