// Package providertest provides a scriptable mock provider shared by the
// engine, recovery, and admin tests.
package providertest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/providers"
)

// MockProvider implements providers.Provider with scriptable failure and
// latency injection. Safe for concurrent use.
type MockProvider struct {
	mu sync.Mutex

	name string

	// failCount is the number of upcoming Invoke calls that fail with err.
	// -1 fails every call until reset.
	failCount int
	err       error

	// latency is added to every Invoke and reported in the response.
	latency time.Duration

	// healthErr is returned by HealthCheck when set.
	healthErr error

	invocations  int
	healthChecks int
	closed       bool
}

// New creates a mock provider that succeeds on every call.
func New(name string) *MockProvider {
	return &MockProvider{name: name}
}

// FailNext scripts the next n Invoke calls to fail with err.
// n = -1 fails every call until the next script change.
func (m *MockProvider) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCount = n
	m.err = err
}

// Succeed clears any scripted failure.
func (m *MockProvider) Succeed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCount = 0
	m.err = nil
}

// SetLatency scripts a fixed latency added to every Invoke.
func (m *MockProvider) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// SetHealthError scripts HealthCheck to fail with err. Nil clears it.
func (m *MockProvider) SetHealthError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
}

// Invocations returns how many times Invoke has been called.
func (m *MockProvider) Invocations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invocations
}

// HealthChecks returns how many times HealthCheck has been called.
func (m *MockProvider) HealthChecks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthChecks
}

// Closed reports whether Close has been called.
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Invoke returns the scripted outcome.
func (m *MockProvider) Invoke(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.mu.Lock()
	m.invocations++
	latency := m.latency
	var err error
	if m.failCount != 0 && m.err != nil {
		err = m.err
		if m.failCount > 0 {
			m.failCount--
		}
	}
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(latency):
		}
	}
	if err != nil {
		return nil, err
	}

	return &providers.Response{
		ID:       req.ID,
		Provider: m.name,
		Model:    req.Model,
		Payload:  json.RawMessage(`{"ok":true}`),
		Latency:  latency,
	}, nil
}

// HealthCheck returns the scripted probe outcome.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthChecks++
	return m.healthErr
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	return m.name
}

// Close marks the provider closed.
func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
