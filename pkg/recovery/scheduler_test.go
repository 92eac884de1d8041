package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
	"github.com/Zeus-Eternal/kari-failover/pkg/config"
	"github.com/Zeus-Eternal/kari-failover/pkg/failover"
)

// scriptedHealth returns fixed scores per provider. Providers without an
// entry score 0.
type scriptedHealth struct {
	scores map[string]float64
}

func (h *scriptedHealth) Score(providerID string) float64 {
	return h.scores[providerID]
}

func testChain() config.FallbackChain {
	return config.FallbackChain{
		ID: "chat",
		Providers: []config.FallbackProvider{
			{ProviderID: "primary"},
			{ProviderID: "secondary"},
			{ProviderID: "tertiary"},
		},
	}
}

func allEligible(config.FallbackProvider) bool { return true }

func TestScheduler_PromotesAfterDelay(t *testing.T) {
	rc := config.RecoveryConfig{
		AutoRecovery:        true,
		RecoveryDelay:       2 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
		RecoveryThreshold:   0.9,
	}
	st := failover.NewChainState(testChain(), rc, 16)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return current })

	health := &scriptedHealth{scores: map[string]float64{"primary": 0.95}}
	recorder := analytics.NewRecorder(nil)
	s := NewScheduler(Options{Health: health, Recorder: recorder})
	s.SetClock(func() time.Time { return current })

	st.Advance("", -1, allEligible)

	// Before the dwell elapses, ticks do nothing even though the primary
	// is healthy again.
	current = current.Add(time.Minute)
	s.Tick(st, rc)
	if st.Status() != failover.StatusDegraded {
		t.Fatalf("Expected no promotion inside the dwell, got %s", st.Status())
	}

	// After the dwell the next tick promotes.
	current = current.Add(90 * time.Second)
	s.Tick(st, rc)
	if st.Status() != failover.StatusNominal {
		t.Errorf("Expected promotion to nominal after the dwell, got %s", st.Status())
	}

	events := recorder.Events("chat", 0)
	if len(events) != 1 || events[0].Type != analytics.EventRecovery {
		t.Fatalf("Expected 1 recovery event, got %+v", events)
	}
	if events[0].Provider != "primary" {
		t.Errorf("Expected recovery event for the promoted provider, got %q", events[0].Provider)
	}
}

func TestScheduler_ThresholdBlocksPromotion(t *testing.T) {
	rc := config.RecoveryConfig{
		AutoRecovery:      true,
		RecoveryThreshold: 0.9,
	}
	st := failover.NewChainState(testChain(), rc, 16)
	health := &scriptedHealth{scores: map[string]float64{"primary": 0.5}}
	s := NewScheduler(Options{Health: health})

	st.Advance("", -1, allEligible)

	s.Tick(st, rc)
	if st.Status() != failover.StatusDegraded {
		t.Errorf("Expected promotion blocked below the threshold, got %s", st.Status())
	}

	health.scores["primary"] = 0.95
	s.Tick(st, rc)
	if st.Status() != failover.StatusNominal {
		t.Errorf("Expected promotion once the score recovered, got %s", st.Status())
	}
}

func TestScheduler_OneStepPerTick(t *testing.T) {
	rc := config.RecoveryConfig{AutoRecovery: true, RecoveryThreshold: 0.5}
	st := failover.NewChainState(testChain(), rc, 16)
	health := &scriptedHealth{scores: map[string]float64{
		"primary":   1.0,
		"secondary": 1.0,
	}}
	s := NewScheduler(Options{Health: health})

	st.Advance("", -1, allEligible)
	st.Advance("", -1, allEligible)

	snap := st.Snapshot()
	if snap.ActiveIndex != 2 {
		t.Fatalf("Expected chain at index 2, got %d", snap.ActiveIndex)
	}

	// A single tick never jumps straight back to nominal.
	s.Tick(st, rc)
	if snap := st.Snapshot(); snap.ActiveIndex != 1 {
		t.Errorf("Expected one-step promotion to index 1, got %d", snap.ActiveIndex)
	}
	s.Tick(st, rc)
	if st.Status() != failover.StatusNominal {
		t.Errorf("Expected nominal after the second tick, got %s", st.Status())
	}
}

func TestScheduler_FrozenChainIgnored(t *testing.T) {
	rc := config.RecoveryConfig{
		AutoRecovery:        true,
		RecoveryThreshold:   0.5,
		MaxRecoveryAttempts: 3,
		RecoveryDelay:       10 * time.Minute,
	}
	st := failover.NewChainState(testChain(), rc, 16)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return current })

	health := &scriptedHealth{scores: map[string]float64{"primary": 1.0, "secondary": 1.0, "tertiary": 1.0}}
	s := NewScheduler(Options{Health: health})
	s.SetClock(func() time.Time { return current })

	// Three promote-then-fail cycles freeze auto-recovery.
	for i := 0; i < 3; i++ {
		st.Advance("", -1, allEligible)
		current = current.Add(11 * time.Minute)
		s.Tick(st, rc)
		current = current.Add(time.Minute)
	}
	st.Advance("", -1, allEligible)

	if !st.RecoveryFrozen() {
		t.Fatal("Expected auto-recovery frozen after three failed promotions")
	}

	// A fourth healthy signal produces no promotion.
	current = current.Add(time.Hour)
	before := st.Snapshot().ActiveIndex
	s.Tick(st, rc)
	if got := st.Snapshot().ActiveIndex; got != before {
		t.Errorf("Expected no promotion while frozen, index moved %d -> %d", before, got)
	}
}

func TestScheduler_RecoveryDurationFromLastFailover(t *testing.T) {
	rc := config.RecoveryConfig{AutoRecovery: true, RecoveryThreshold: 0.5}
	st := failover.NewChainState(testChain(), rc, 16)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return current })

	recorder := analytics.NewRecorder(nil)
	recorder.SetClock(func() time.Time { return current })
	health := &scriptedHealth{scores: map[string]float64{"primary": 1.0}}
	s := NewScheduler(Options{Health: health, Recorder: recorder})
	s.SetClock(func() time.Time { return current })

	// Failover, then recovery 5 minutes later: the analytics aggregate
	// reports the downtime between the matched pair.
	s.opts.Recorder.Record(&analytics.Event{
		ChainID:  "chat",
		Type:     analytics.EventFailover,
		Provider: "primary",
		Target:   "secondary",
	})
	st.Advance("", -1, allEligible)
	current = current.Add(5 * time.Minute)
	s.Tick(st, rc)

	snapshot := recorder.Snapshot("chat")
	if snapshot.TotalRecoveries != 1 {
		t.Fatalf("Expected 1 recovery, got %d", snapshot.TotalRecoveries)
	}
	if snapshot.AverageRecoveryTime != 5*time.Minute {
		t.Errorf("Expected 5m average recovery time, got %v", snapshot.AverageRecoveryTime)
	}
}

func TestScheduler_AutoRecoveryDisabledNotWatched(t *testing.T) {
	rc := config.RecoveryConfig{AutoRecovery: false, HealthCheckInterval: time.Second}
	st := failover.NewChainState(testChain(), rc, 16)
	s := NewScheduler(Options{})
	defer s.Close()

	s.Watch(context.Background(), st, rc)

	s.mu.Lock()
	n := len(s.watches)
	s.mu.Unlock()
	if n != 0 {
		t.Errorf("Expected no watch for a chain with auto-recovery disabled, got %d", n)
	}
}

func TestScheduler_UnwatchStopsLoop(t *testing.T) {
	rc := config.RecoveryConfig{
		AutoRecovery:        true,
		HealthCheckInterval: 10 * time.Millisecond,
		RecoveryThreshold:   0.5,
	}
	st := failover.NewChainState(testChain(), rc, 16)
	s := NewScheduler(Options{})
	defer s.Close()

	s.Watch(context.Background(), st, rc)
	s.Unwatch("chat")

	s.mu.Lock()
	n := len(s.watches)
	s.mu.Unlock()
	if n != 0 {
		t.Errorf("Expected watch removed, got %d", n)
	}
}
