package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
	"github.com/Zeus-Eternal/kari-failover/pkg/config"
	"github.com/Zeus-Eternal/kari-failover/pkg/failover"
	"github.com/Zeus-Eternal/kari-failover/pkg/providers"
	"github.com/Zeus-Eternal/kari-failover/pkg/telemetry/metrics"
)

// Options configures the health monitor.
type Options struct {
	// Recorder receives health_check events on status transitions. Optional.
	Recorder *analytics.Recorder

	// Metrics receives provider health gauge updates. Optional.
	Metrics *metrics.Collector

	// WindowSize is the capacity of the per-provider live outcome window.
	// Default: 256
	WindowSize int
}

// probeState tracks one provider's probe loop and hysteresis counters.
type probeState struct {
	check      config.HealthCheck
	configID   string
	status     ProbeStatus
	consecOK   int
	consecFail int
	lastProbe  time.Time
	lastError  string
	cancel     context.CancelFunc
}

// ProviderHealth is a point-in-time view of one provider's health.
type ProviderHealth struct {
	Provider     string    `json:"provider"`
	Status       string    `json:"status"`
	Score        float64   `json:"score"`
	LastProbe    time.Time `json:"last_probe,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	ConfiguredBy string    `json:"configured_by,omitempty"`
}

// Monitor probes providers on their configured intervals and folds live
// call outcomes into a composite health score.
//
// Probe results move a provider through unknown, healthy, degraded, and
// unhealthy with hysteresis: a provider becomes healthy only after the
// configured run of consecutive probe successes, and unhealthy only after
// the configured run of consecutive failures. Single blips land in
// degraded instead of flapping the state.
//
// The score blends the probe status with the live success rate:
//
//	score = 0                                        when unhealthy
//	score = 0.5*statusWeight + 0.5*liveSuccessRate   otherwise
//
// so a provider that passes probes but fails real traffic still loses
// eligibility against per-provider health thresholds.
type Monitor struct {
	registry *providers.Registry
	opts     Options
	logger   *slog.Logger

	mu      sync.RWMutex
	probes  map[string]*probeState
	windows map[string]*failover.Window
	wg      sync.WaitGroup
	closed  bool

	now func() time.Time
}

// NewMonitor creates a health monitor over the provider registry.
func NewMonitor(registry *providers.Registry, opts Options) *Monitor {
	if opts.WindowSize <= 0 {
		opts.WindowSize = 256
	}
	return &Monitor{
		registry: registry,
		opts:     opts,
		logger:   slog.Default().With("component", "health.monitor"),
		probes:   make(map[string]*probeState),
		windows:  make(map[string]*failover.Window),
		now:      time.Now,
	}
}

// SetClock overrides the monitor's time source. Intended for tests.
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Apply registers the health checks of a fallback configuration and starts
// their probe loops. A provider already probed on behalf of another config
// keeps its existing loop.
func (m *Monitor) Apply(ctx context.Context, configID string, checks []config.HealthCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	for _, check := range checks {
		if existing, ok := m.probes[check.ProviderID]; ok {
			if existing.configID != configID {
				continue
			}
			existing.cancel()
		}

		probeCtx, cancel := context.WithCancel(ctx)
		st := &probeState{
			check:    check,
			configID: configID,
			status:   StatusUnknown,
			cancel:   cancel,
		}
		m.probes[check.ProviderID] = st

		m.wg.Add(1)
		go m.probeLoop(probeCtx, check.ProviderID, check)

		m.logger.Info("health probe started",
			"provider", check.ProviderID,
			"type", check.Type,
			"interval", check.Interval,
		)
	}
}

// Remove stops the probe loops registered by a fallback configuration.
func (m *Monitor) Remove(configID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for providerID, st := range m.probes {
		if st.configID != configID {
			continue
		}
		st.cancel()
		delete(m.probes, providerID)
		m.logger.Info("health probe stopped", "provider", providerID)
	}
}

// ReportOutcome folds a live call outcome into the provider's window.
// The orchestrator calls this for every attempt it makes.
func (m *Monitor) ReportOutcome(providerID string, success bool, latency time.Duration) {
	m.windowFor(providerID).Record(success, latency)

	if m.opts.Metrics != nil {
		m.opts.Metrics.UpdateProviderHealthScore(providerID, m.Score(providerID))
	}
}

// Status returns the provider's probe status. Providers with no probe
// configured report StatusUnknown.
func (m *Monitor) Status(providerID string) ProbeStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.probes[providerID]
	if !ok {
		return StatusUnknown
	}
	return st.status
}

// Score returns the provider's composite health score in [0,1].
func (m *Monitor) Score(providerID string) float64 {
	status := m.Status(providerID)
	if status == StatusUnhealthy {
		return 0.0
	}

	liveRate := 1.0
	m.mu.RLock()
	w, ok := m.windows[providerID]
	m.mu.RUnlock()
	if ok {
		liveRate = w.SuccessRate()
	}

	return 0.5*statusWeight(status) + 0.5*liveRate
}

// Snapshot returns the health of every probed provider.
func (m *Monitor) Snapshot() []ProviderHealth {
	m.mu.RLock()
	ids := make([]string, 0, len(m.probes))
	for id := range m.probes {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(ids))
	for _, id := range ids {
		m.mu.RLock()
		st := m.probes[id]
		ph := ProviderHealth{
			Provider:     id,
			Status:       st.status.String(),
			LastProbe:    st.lastProbe,
			LastError:    st.lastError,
			ConfiguredBy: st.configID,
		}
		m.mu.RUnlock()
		ph.Score = m.Score(id)
		out = append(out, ph)
	}
	return out
}

// Close stops all probe loops and waits for them to exit.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	for _, st := range m.probes {
		st.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Monitor) probeLoop(ctx context.Context, providerID string, check config.HealthCheck) {
	defer m.wg.Done()

	ticker := time.NewTicker(check.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := m.runProbe(ctx, providerID, check)
			m.applyResult(providerID, err)
		}
	}
}

// runProbe executes one probe cycle, retrying transient failures up to the
// configured retry count before declaring the cycle failed.
func (m *Monitor) runProbe(ctx context.Context, providerID string, check config.HealthCheck) error {
	provider, err := m.registry.Get(providerID)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= check.Retries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, check.Timeout)
		lastErr = m.probeOnce(probeCtx, provider, check)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (m *Monitor) probeOnce(ctx context.Context, provider providers.Provider, check config.HealthCheck) error {
	switch check.Type {
	case config.ProbeSynthetic:
		_, err := provider.Invoke(ctx, &providers.Request{
			ID:      uuid.NewString(),
			Payload: json.RawMessage(`{"synthetic":true}`),
			Metadata: map[string]string{
				"probe": "synthetic",
			},
		})
		return err
	default:
		return provider.HealthCheck(ctx)
	}
}

// applyResult updates the hysteresis counters and emits a health_check
// event when the status changes.
func (m *Monitor) applyResult(providerID string, probeErr error) {
	m.mu.Lock()
	st, ok := m.probes[providerID]
	if !ok {
		m.mu.Unlock()
		return
	}

	st.lastProbe = m.now()
	old := st.status

	if probeErr == nil {
		st.consecOK++
		st.consecFail = 0
		st.lastError = ""
		if st.consecOK >= st.check.HealthyThreshold {
			st.status = StatusHealthy
		} else if st.status == StatusUnhealthy {
			st.status = StatusDegraded
		}
	} else {
		st.consecFail++
		st.consecOK = 0
		st.lastError = probeErr.Error()
		if st.consecFail >= st.check.UnhealthyThreshold {
			st.status = StatusUnhealthy
		} else if st.status == StatusHealthy {
			st.status = StatusDegraded
		}
	}

	newStatus := st.status
	configID := st.configID
	m.mu.Unlock()

	if newStatus == old {
		return
	}

	m.logger.Info("provider health changed",
		"provider", providerID,
		"from", old.String(),
		"to", newStatus.String(),
	)

	if m.opts.Recorder != nil {
		m.opts.Recorder.Record(&analytics.Event{
			ChainID:  configID,
			Type:     analytics.EventHealthCheck,
			Provider: providerID,
			Reason:   fmt.Sprintf("%s -> %s", old, newStatus),
		})
	}
	if m.opts.Metrics != nil {
		m.opts.Metrics.UpdateProviderHealth(providerID, newStatus == StatusHealthy)
		m.opts.Metrics.UpdateProviderHealthScore(providerID, m.Score(providerID))
	}
}

func (m *Monitor) windowFor(providerID string) *failover.Window {
	m.mu.RLock()
	w, ok := m.windows[providerID]
	m.mu.RUnlock()
	if ok {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok = m.windows[providerID]; ok {
		return w
	}
	w = failover.NewWindow(m.opts.WindowSize)
	m.windows[providerID] = w
	return w
}
