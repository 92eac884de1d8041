// Package recovery promotes chains back toward their nominal provider after
// failover. A Scheduler runs one watch loop per chain on the configured
// interval; each tick considers a single one-step promotion, gated by the
// recovery dwell delay, the promotion health threshold, and the failed
// attempt cap.
package recovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
	"github.com/Zeus-Eternal/kari-failover/pkg/config"
	"github.com/Zeus-Eternal/kari-failover/pkg/failover"
	"github.com/Zeus-Eternal/kari-failover/pkg/telemetry/metrics"
)

// Scorer supplies provider health scores. health.Monitor implements it.
type Scorer interface {
	Score(providerID string) float64
}

// Options configures the recovery scheduler.
type Options struct {
	// Health supplies the scores compared against the recovery threshold.
	// Nil treats every provider as fully healthy.
	Health Scorer

	// Recorder receives recovery events. Optional.
	Recorder *analytics.Recorder

	// Metrics receives recovery counters and chain status updates. Optional.
	Metrics *metrics.Collector
}

type watch struct {
	state    *failover.ChainState
	recovery config.RecoveryConfig
	cancel   context.CancelFunc
}

// Scheduler drives automatic recovery for watched chains.
//
// Promotion is strictly one step per tick: a chain that failed over twice
// recovers through the intermediate provider, never jumping straight back to
// nominal. A chain whose promotions keep failing gets frozen by the state
// machine after the configured attempt cap; the scheduler observes the
// freeze and stays quiet until a manual reset.
type Scheduler struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	watches map[string]*watch
	wg      sync.WaitGroup
	closed  bool

	now func() time.Time
}

// NewScheduler creates a recovery scheduler.
func NewScheduler(opts Options) *Scheduler {
	return &Scheduler{
		opts:    opts,
		logger:  slog.Default().With("component", "recovery.scheduler"),
		watches: make(map[string]*watch),
		now:     time.Now,
	}
}

// SetClock overrides the scheduler's time source. Intended for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Watch starts the recovery loop for a chain. Watching an already-watched
// chain replaces its loop, picking up a changed recovery policy. Chains with
// auto-recovery disabled are not watched.
func (s *Scheduler) Watch(ctx context.Context, st *failover.ChainState, rc config.RecoveryConfig) {
	if !rc.AutoRecovery {
		s.Unwatch(st.ChainID())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if existing, ok := s.watches[st.ChainID()]; ok {
		existing.cancel()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.watches[st.ChainID()] = &watch{state: st, recovery: rc, cancel: cancel}

	s.wg.Add(1)
	go s.loop(loopCtx, st, rc)

	s.logger.Info("recovery watch started",
		"chain_id", st.ChainID(),
		"interval", rc.HealthCheckInterval,
		"delay", rc.RecoveryDelay,
	)
}

// Unwatch stops the recovery loop for a chain.
func (s *Scheduler) Unwatch(chainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.watches[chainID]; ok {
		w.cancel()
		delete(s.watches, chainID)
		s.logger.Info("recovery watch stopped", "chain_id", chainID)
	}
}

// Close stops all watches and waits for the loops to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for _, w := range s.watches {
		w.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, st *failover.ChainState, rc config.RecoveryConfig) {
	defer s.wg.Done()

	ticker := time.NewTicker(rc.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(st, rc)
		}
	}
}

// Tick evaluates one recovery opportunity for a chain. Exposed so tests can
// drive the scheduler deterministically without real tickers.
func (s *Scheduler) Tick(st *failover.ChainState, rc config.RecoveryConfig) {
	if st.Status() == failover.StatusNominal {
		return
	}
	if st.RecoveryFrozen() {
		return
	}
	if rc.RecoveryDelay > 0 {
		s.mu.Lock()
		now := s.now()
		s.mu.Unlock()
		if now.Sub(st.LastFailover()) < rc.RecoveryDelay {
			return
		}
	}

	lastFailover := st.LastFailover()

	from, to, ok := st.Promote(func(p config.FallbackProvider) bool {
		return s.score(p.ProviderID) >= rc.RecoveryThreshold
	})
	if !ok {
		return
	}

	var downFor time.Duration
	if !lastFailover.IsZero() {
		s.mu.Lock()
		downFor = s.now().Sub(lastFailover)
		s.mu.Unlock()
	}

	chain := st.Chain()
	toID := chain.Providers[to].ProviderID
	fromID := chain.Providers[from].ProviderID

	s.logger.Info("recovery promotion",
		"chain_id", st.ChainID(),
		"from", fromID,
		"to", toID,
		"status", st.Status().String(),
	)

	if s.opts.Recorder != nil {
		s.opts.Recorder.Record(&analytics.Event{
			ChainID:  st.ChainID(),
			Type:     analytics.EventRecovery,
			Provider: toID,
			Reason:   "health restored",
		})
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordRecovery(st.ChainID(), toID, downFor)
		s.opts.Metrics.UpdateChainStatus(st.ChainID(), int(st.Status()))
	}
}

func (s *Scheduler) score(providerID string) float64 {
	if s.opts.Health == nil {
		return 1.0
	}
	return s.opts.Health.Score(providerID)
}
