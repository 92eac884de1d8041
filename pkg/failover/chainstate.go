package failover

import (
	"fmt"
	"sync"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

// Status is the chain state machine status.
type Status int

const (
	// StatusNominal means the active provider is index 0.
	StatusNominal Status = iota

	// StatusDegraded means the active provider is index > 0, arrived at
	// via failover.
	StatusDegraded

	// StatusExhausted means no eligible provider remains; calls fail fast
	// until a provider recovers or the configuration changes.
	StatusExhausted
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNominal:
		return "nominal"
	case StatusDegraded:
		return "degraded"
	case StatusExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ChainState is the per-chain mutable runtime state machine: which provider
// is currently active, failover bookkeeping, recovery attempt counters, and
// the per-provider rolling outcome windows.
//
// All transitions for one chain are linearized through the chain's own lock;
// chains never contend with each other. ChainState is created when a chain is
// loaded, mutated exclusively by the orchestrator and the recovery scheduler,
// and destroyed when the chain is deleted or the engine shuts down. It is
// never persisted verbatim, but it is snapshot-able.
type ChainState struct {
	mu sync.RWMutex

	chain    config.FallbackChain
	recovery config.RecoveryConfig

	status    Status
	activeIdx int
	disabled  map[int]bool

	lastFailover  time.Time
	lastPromotion time.Time
	promotedIdx   int

	recoveryAttempts int
	recoveryFrozen   bool

	lastFiring map[string]time.Time
	firings    map[string][]time.Time

	windows []*Window

	testing bool

	now func() time.Time
}

// NewChainState creates runtime state for a loaded chain. The chain starts
// in the nominal state with index 0 active.
func NewChainState(chain config.FallbackChain, recovery config.RecoveryConfig, windowSize int) *ChainState {
	windows := make([]*Window, len(chain.Providers))
	for i := range windows {
		windows[i] = NewWindow(windowSize)
	}
	return &ChainState{
		chain:       chain,
		recovery:    recovery,
		status:      StatusNominal,
		disabled:    make(map[int]bool),
		promotedIdx: -1,
		lastFiring:  make(map[string]time.Time),
		firings:     make(map[string][]time.Time),
		windows:     windows,
		now:         time.Now,
	}
}

// SetClock overrides the state's time source. Intended for tests; the
// override propagates to the per-provider windows.
func (s *ChainState) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	for _, w := range s.windows {
		w.mu.Lock()
		w.now = now
		w.mu.Unlock()
	}
}

// ChainID returns the chain identifier.
func (s *ChainState) ChainID() string {
	return s.chain.ID
}

// Chain returns a copy of the chain configuration.
func (s *ChainState) Chain() config.FallbackChain {
	return s.chain
}

// Status returns the current state machine status.
func (s *ChainState) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Active returns the active provider index and configuration. ok is false
// when the chain is exhausted or has no providers.
func (s *ChainState) Active() (int, config.FallbackProvider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == StatusExhausted || len(s.chain.Providers) == 0 {
		return 0, config.FallbackProvider{}, false
	}
	return s.activeIdx, s.chain.Providers[s.activeIdx], true
}

// RecordOutcome folds a completed attempt against provider idx into that
// provider's rolling window.
func (s *ChainState) RecordOutcome(idx int, success bool, latency time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx < 0 || idx >= len(s.windows) {
		return
	}
	s.windows[idx].Record(success, latency)
}

// StatsFor returns window aggregates for provider idx over the trailing
// duration.
func (s *ChainState) StatsFor(idx int, window time.Duration) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx < 0 || idx >= len(s.windows) {
		return Stats{}
	}
	return s.windows[idx].Stats(window)
}

// ConsecutiveFailures returns the trailing failure run for provider idx.
func (s *ChainState) ConsecutiveFailures(idx int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx < 0 || idx >= len(s.windows) {
		return 0
	}
	return s.windows[idx].ConsecutiveFailures()
}

// SuccessRate returns the live-traffic success fraction for provider idx
// over its whole window.
func (s *ChainState) SuccessRate(idx int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx < 0 || idx >= len(s.windows) {
		return 1.0
	}
	return s.windows[idx].SuccessRate()
}

// CanFire reports whether the rule's cooldown has elapsed and its firing cap
// has not been exceeded within its rolling period.
func (s *ChainState) CanFire(rule *config.FailoverRule) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	if last, ok := s.lastFiring[rule.ID]; ok && rule.Cooldown > 0 {
		if now.Sub(last) < rule.Cooldown {
			return false
		}
	}
	if rule.MaxFailovers > 0 {
		cutoff := now.Add(-rule.Period)
		recent := 0
		for _, t := range s.firings[rule.ID] {
			if !t.Before(cutoff) {
				recent++
			}
		}
		if recent >= rule.MaxFailovers {
			return false
		}
	}
	return true
}

// Advance moves the active provider to targetIdx, or to the next eligible
// higher-index provider when targetIdx is negative. Failover never moves
// backward and never selects a disabled or ineligible provider.
//
// ruleID attributes the transition to a failover rule for cooldown and cap
// bookkeeping; it may be empty for declarative condition trips.
//
// When no eligible provider remains the chain transitions to exhausted and
// ok is false. A failover away from a provider that was promoted since the
// previous failover counts as a failed recovery attempt; exceeding the
// configured cap freezes auto-recovery.
func (s *ChainState) Advance(ruleID string, targetIdx int, eligible func(config.FallbackProvider) bool) (from, to int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = s.activeIdx
	now := s.now()

	to = -1
	if targetIdx > from && targetIdx < len(s.chain.Providers) &&
		!s.disabled[targetIdx] && eligible(s.chain.Providers[targetIdx]) {
		to = targetIdx
	} else {
		for i := from + 1; i < len(s.chain.Providers); i++ {
			if s.disabled[i] {
				continue
			}
			if eligible(s.chain.Providers[i]) {
				to = i
				break
			}
		}
	}

	// Failed-recovery accounting: the provider we are failing away from was
	// promoted after the previous failover and did not hold through the
	// recovery dwell. A failover that is not on the heels of a promotion
	// starts a fresh incident with a zero counter.
	promotedRecently := s.promotedIdx == from && s.lastPromotion.After(s.lastFailover) &&
		(s.recovery.RecoveryDelay <= 0 || now.Sub(s.lastPromotion) < s.recovery.RecoveryDelay)
	if promotedRecently {
		s.recoveryAttempts++
		if s.recovery.MaxRecoveryAttempts > 0 && s.recoveryAttempts >= s.recovery.MaxRecoveryAttempts {
			s.recoveryFrozen = true
		}
	} else {
		s.recoveryAttempts = 0
	}
	s.promotedIdx = -1
	s.lastFailover = now

	if ruleID != "" {
		s.lastFiring[ruleID] = now
		s.firings[ruleID] = appendPruned(s.firings[ruleID], now, now.Add(-maxFiringHistory))
	}

	if to < 0 {
		s.status = StatusExhausted
		return from, from, false
	}

	s.activeIdx = to
	s.status = StatusDegraded
	return from, to, true
}

// maxFiringHistory bounds the per-rule firing log retained for cap checks.
const maxFiringHistory = 24 * time.Hour

func appendPruned(ts []time.Time, t time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, old := range ts {
		if !old.Before(cutoff) {
			kept = append(kept, old)
		}
	}
	return append(kept, t)
}

// DisableProvider marks provider idx ineligible until the chain state is
// rebuilt by a configuration reload.
func (s *ChainState) DisableProvider(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx >= 0 && idx < len(s.chain.Providers) {
		s.disabled[idx] = true
	}
}

// Promote moves the active provider one step toward index 0, or out of the
// exhausted state to the lowest eligible index. It returns ok=false when the
// chain is nominal, auto-recovery is frozen, or the candidate is ineligible.
//
// Promotion does not clear the failed-attempt counter: an incident ends only
// when the promoted provider holds through the recovery dwell, observed lazily
// at the next failover. A freeze outlives full recovery until a manual reset
// or a configuration reload.
func (s *ChainState) Promote(eligible func(config.FallbackProvider) bool) (from, to int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = s.activeIdx
	if s.recoveryFrozen {
		return from, from, false
	}

	switch s.status {
	case StatusNominal:
		return from, from, false

	case StatusDegraded:
		candidate := s.activeIdx - 1
		if candidate < 0 || s.disabled[candidate] || !eligible(s.chain.Providers[candidate]) {
			return from, from, false
		}
		to = candidate

	case StatusExhausted:
		to = -1
		for i := range s.chain.Providers {
			if s.disabled[i] {
				continue
			}
			if eligible(s.chain.Providers[i]) {
				to = i
				break
			}
		}
		if to < 0 {
			return from, from, false
		}
	}

	s.activeIdx = to
	s.promotedIdx = to
	s.lastPromotion = s.now()
	if to == 0 {
		s.status = StatusNominal
	} else {
		s.status = StatusDegraded
	}
	return from, to, true
}

// LastFailover returns the time of the most recent failover.
func (s *ChainState) LastFailover() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFailover
}

// RecoveryAttempts returns the failed promotion count for the current
// incident.
func (s *ChainState) RecoveryAttempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recoveryAttempts
}

// RecoveryFrozen reports whether auto-recovery is frozen for this chain.
func (s *ChainState) RecoveryFrozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recoveryFrozen
}

// ResetRecovery clears the recovery attempt counter and unfreezes
// auto-recovery. Invoked by manual intervention through the admin API.
func (s *ChainState) ResetRecovery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveryAttempts = 0
	s.recoveryFrozen = false
}

// BeginTest acquires the chain's synthetic-test flag, preventing concurrent
// chain tests from corrupting each other's sandboxes.
func (s *ChainState) BeginTest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.testing {
		return ErrTestInProgress
	}
	s.testing = true
	return nil
}

// EndTest releases the synthetic-test flag.
func (s *ChainState) EndTest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testing = false
}

// Clone returns a deep copy of the runtime state for sandboxed evaluation.
// The clone shares nothing with the live state; mutating it has no effect on
// live traffic routing.
func (s *ChainState) Clone() *ChainState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &ChainState{
		chain:            s.chain,
		recovery:         s.recovery,
		status:           s.status,
		activeIdx:        s.activeIdx,
		disabled:         make(map[int]bool, len(s.disabled)),
		lastFailover:     s.lastFailover,
		lastPromotion:    s.lastPromotion,
		promotedIdx:      s.promotedIdx,
		recoveryAttempts: s.recoveryAttempts,
		recoveryFrozen:   s.recoveryFrozen,
		lastFiring:       make(map[string]time.Time, len(s.lastFiring)),
		firings:          make(map[string][]time.Time, len(s.firings)),
		windows:          make([]*Window, len(s.windows)),
		now:              s.now,
	}
	for k, v := range s.disabled {
		c.disabled[k] = v
	}
	for k, v := range s.lastFiring {
		c.lastFiring[k] = v
	}
	for k, v := range s.firings {
		c.firings[k] = append([]time.Time(nil), v...)
	}
	for i, w := range s.windows {
		c.windows[i] = w.Clone()
	}
	return c
}

// ProviderSnapshot is a point-in-time view of one chain hop.
type ProviderSnapshot struct {
	ProviderID          string  `json:"provider_id"`
	Weight              float64 `json:"weight"`
	Disabled            bool    `json:"disabled"`
	Samples             int     `json:"samples"`
	ErrorRate           float64 `json:"error_rate"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
}

// Snapshot is a point-in-time view of a chain's runtime state.
type Snapshot struct {
	ChainID          string             `json:"chain_id"`
	Status           string             `json:"status"`
	ActiveIndex      int                `json:"active_index"`
	ActiveProvider   string             `json:"active_provider"`
	LastFailover     time.Time          `json:"last_failover"`
	RecoveryAttempts int                `json:"recovery_attempts"`
	RecoveryFrozen   bool               `json:"recovery_frozen"`
	Providers        []ProviderSnapshot `json:"providers"`
}

// Snapshot returns a point-in-time copy of the runtime state.
func (s *ChainState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ChainID:          s.chain.ID,
		Status:           s.status.String(),
		ActiveIndex:      s.activeIdx,
		LastFailover:     s.lastFailover,
		RecoveryAttempts: s.recoveryAttempts,
		RecoveryFrozen:   s.recoveryFrozen,
	}
	if len(s.chain.Providers) > 0 && s.status != StatusExhausted {
		snap.ActiveProvider = s.chain.Providers[s.activeIdx].ProviderID
	}
	for i, p := range s.chain.Providers {
		stats := s.windows[i].Stats(0)
		snap.Providers = append(snap.Providers, ProviderSnapshot{
			ProviderID:          p.ProviderID,
			Weight:              p.Weight,
			Disabled:            s.disabled[i],
			Samples:             stats.Samples,
			ErrorRate:           stats.ErrorRate,
			ConsecutiveFailures: s.windows[i].ConsecutiveFailures(),
		})
	}
	return snap
}
