package failover

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
	"github.com/Zeus-Eternal/kari-failover/pkg/config"
	"github.com/Zeus-Eternal/kari-failover/pkg/providers"
	"github.com/Zeus-Eternal/kari-failover/pkg/telemetry/metrics"
)

// HealthSource supplies provider eligibility signals to the orchestrator and
// receives the outcome of every live attempt. health.Monitor implements it.
type HealthSource interface {
	// Score returns the provider's composite health score in [0,1].
	Score(providerID string) float64

	// ReportOutcome folds a completed live attempt into the provider's
	// rolling window.
	ReportOutcome(providerID string, success bool, latency time.Duration)
}

// Options configures the orchestrator.
type Options struct {
	// Registry resolves provider IDs to adapters. Required.
	Registry *providers.Registry

	// Health supplies provider health scores and receives live outcomes.
	// Nil treats every provider as fully healthy.
	Health HealthSource

	// Recorder receives failover and request events. Optional.
	Recorder *analytics.Recorder

	// Metrics receives request, failover, and chain status updates. Optional.
	Metrics *metrics.Collector

	// Engine holds the shared tuning knobs.
	Engine config.EngineConfig
}

// chainRuntime binds a chain's mutable state to the rule evaluator and
// declarative conditions of its owning configuration.
type chainRuntime struct {
	configID   string
	state      *ChainState
	evaluator  *RuleEvaluator
	conditions []config.Condition
}

// Orchestrator routes logical calls across fallback chains. It retries the
// active provider within its hop budget, consults the declarative conditions
// and windowed rules when the budget is exhausted, advances the chain to the
// next eligible provider, and surfaces ChainExhaustedError when none remains.
//
// Configuration is copy-on-write: ApplyConfig swaps in fresh runtime state
// for a changed configuration, while an identical reload leaves the running
// state untouched.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger

	mu      sync.RWMutex
	configs map[string]*config.FallbackConfig
	enabled map[string]bool
	chains  map[string]*chainRuntime

	now func() time.Time
}

// NewOrchestrator creates a failover orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Engine.RetryBackoff <= 0 {
		opts.Engine.RetryBackoff = config.DefaultRetryBackoff
	}
	if opts.Engine.WindowSize <= 0 {
		opts.Engine.WindowSize = config.DefaultWindowSize
	}
	if opts.Engine.MinRuleSamples <= 0 {
		opts.Engine.MinRuleSamples = config.DefaultMinRuleSamples
	}
	return &Orchestrator{
		opts:    opts,
		logger:  slog.Default().With("component", "failover.orchestrator"),
		configs: make(map[string]*config.FallbackConfig),
		enabled: make(map[string]bool),
		chains:  make(map[string]*chainRuntime),
		now:     time.Now,
	}
}

// SetClock overrides the orchestrator's time source and propagates it to all
// loaded chain states. Intended for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
	for _, rt := range o.chains {
		rt.state.SetClock(now)
	}
}

// ApplyConfig loads or reloads a fallback configuration. Reloading a
// configuration that deep-equals the loaded one is a no-op: runtime state,
// rolling windows, and failover bookkeeping survive untouched. A changed
// configuration rebuilds the runtime state of all its chains.
func (o *Orchestrator) ApplyConfig(cfg *config.FallbackConfig) error {
	if cfg == nil || cfg.ID == "" {
		return fmt.Errorf("fallback config id cannot be empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.configs[cfg.ID]; ok && reflect.DeepEqual(existing, cfg) {
		o.logger.Debug("config unchanged, keeping runtime state", "config_id", cfg.ID)
		return nil
	}

	// Drop runtime state for chains that no longer exist in the new config.
	for chainID, rt := range o.chains {
		if rt.configID == cfg.ID && cfg.ChainByID(chainID) == nil {
			delete(o.chains, chainID)
		}
	}

	for i := range cfg.Chains {
		chain := cfg.Chains[i]
		st := NewChainState(chain, cfg.Recovery, o.opts.Engine.WindowSize)
		st.SetClock(o.now)
		o.chains[chain.ID] = &chainRuntime{
			configID:   cfg.ID,
			state:      st,
			evaluator:  NewRuleEvaluator(cfg.Rules, o.opts.Engine.MinRuleSamples),
			conditions: chain.Conditions,
		}
		if o.opts.Metrics != nil {
			o.opts.Metrics.UpdateChainStatus(chain.ID, int(StatusNominal))
		}
	}

	o.configs[cfg.ID] = cfg
	o.enabled[cfg.ID] = cfg.Enabled

	o.logger.Info("fallback config applied",
		"config_id", cfg.ID,
		"chains", len(cfg.Chains),
		"rules", len(cfg.Rules),
		"enabled", cfg.Enabled,
	)
	return nil
}

// RemoveConfig unloads a configuration and the runtime state of its chains.
// Removing an unloaded configuration is a no-op.
func (o *Orchestrator) RemoveConfig(configID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for chainID, rt := range o.chains {
		if rt.configID == configID {
			delete(o.chains, chainID)
		}
	}
	delete(o.configs, configID)
	delete(o.enabled, configID)

	o.logger.Info("fallback config removed", "config_id", configID)
}

// SetEnabled toggles traffic routing for a loaded configuration without
// touching its runtime state.
func (o *Orchestrator) SetEnabled(configID string, enabled bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.configs[configID]; !ok {
		return fmt.Errorf("fallback config %q not loaded", configID)
	}
	o.enabled[configID] = enabled
	o.logger.Info("fallback config toggled", "config_id", configID, "enabled", enabled)
	return nil
}

// ChainIDs returns the IDs of all loaded chains.
func (o *Orchestrator) ChainIDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ids := make([]string, 0, len(o.chains))
	for id := range o.chains {
		ids = append(ids, id)
	}
	return ids
}

// State returns the live runtime state for a chain. The recovery scheduler
// promotes through it; everyone else should use Snapshot.
func (o *Orchestrator) State(chainID string) (*ChainState, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rt, ok := o.chains[chainID]
	if !ok {
		return nil, false
	}
	return rt.state, true
}

// Snapshot returns a point-in-time view of a chain's runtime state.
func (o *Orchestrator) Snapshot(chainID string) (Snapshot, error) {
	o.mu.RLock()
	rt, ok := o.chains[chainID]
	o.mu.RUnlock()

	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	return rt.state.Snapshot(), nil
}

// ResetRecovery clears a chain's recovery attempt counter and unfreezes
// auto-recovery. Exposed through the admin API for manual intervention.
func (o *Orchestrator) ResetRecovery(chainID string) error {
	o.mu.RLock()
	rt, ok := o.chains[chainID]
	o.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	rt.state.ResetRecovery()
	return nil
}

// Invoke routes one logical call through the chain. The active provider is
// attempted up to its retry budget; on exhaustion the declarative conditions
// and windowed rules decide whether the chain advances, and a successful
// failover resets the retry budget at the new hop within the same call. The
// whole call is bounded by the sum of per-hop budgets.
func (o *Orchestrator) Invoke(ctx context.Context, chainID string, req *providers.Request) (*providers.Response, error) {
	o.mu.RLock()
	rt, ok := o.chains[chainID]
	var enabled bool
	if ok {
		enabled = o.enabled[rt.configID]
	}
	o.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	if !enabled {
		return nil, fmt.Errorf("%w: %s", ErrConfigDisabled, rt.configID)
	}

	callCtx := ctx
	if ceiling := callCeiling(rt.state.Chain()); ceiling > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, ceiling)
		defer cancel()
	}

	start := o.now()
	resp, err := o.invokeChain(callCtx, ctx, rt, req)
	elapsed := o.now().Sub(start)

	if o.opts.Recorder != nil {
		o.opts.Recorder.RecordRequest(chainID, err == nil)
	}
	if o.opts.Metrics != nil {
		status := "success"
		provider := ""
		if resp != nil {
			provider = resp.Provider
		}
		if err != nil {
			status = "error"
		}
		o.opts.Metrics.RecordRequest(chainID, provider, status, elapsed)
	}
	return resp, err
}

// invokeChain walks the chain hop by hop. callCtx carries the call ceiling;
// callerCtx is the caller's own context, checked separately so that caller
// cancellation abandons the attempt without recording an outcome.
func (o *Orchestrator) invokeChain(callCtx, callerCtx context.Context, rt *chainRuntime, req *providers.Request) (*providers.Response, error) {
	st := rt.state
	var lastErr error

	for {
		idx, hop, ok := st.Active()
		if !ok {
			return nil, &ChainExhaustedError{ChainID: st.ChainID(), LastError: lastErr}
		}

		resp, reason, latency, err := o.attemptHop(callCtx, callerCtx, st, idx, hop, req)
		if err == nil {
			return resp, nil
		}
		if callerCtx.Err() != nil {
			// Caller cancelled: the attempt was abandoned, nothing recorded.
			return nil, callerCtx.Err()
		}
		lastErr = err

		if !o.failOver(rt, idx, hop, reason, latency) {
			if st.Status() == StatusExhausted {
				return nil, &ChainExhaustedError{ChainID: st.ChainID(), LastError: lastErr}
			}
			return nil, lastErr
		}
	}
}

// attemptHop runs the active provider's full retry budget. It returns the
// classified failure reason and the latency of the final attempt for
// condition matching.
func (o *Orchestrator) attemptHop(callCtx, callerCtx context.Context, st *ChainState, idx int, hop config.FallbackProvider, req *providers.Request) (*providers.Response, string, time.Duration, error) {
	provider, err := o.opts.Registry.Get(hop.ProviderID)
	if err != nil {
		return nil, providers.ReasonProviderError, 0, err
	}

	hopReq := req
	if hop.Model != "" {
		pinned := *req
		pinned.Model = hop.Model
		hopReq = &pinned
	}

	var lastErr error
	var lastReason string
	var lastLatency time.Duration

	for attempt := 0; attempt <= hop.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-callCtx.Done():
				return nil, lastReason, lastLatency, callCtx.Err()
			case <-time.After(o.opts.Engine.RetryBackoff):
			}
		}

		attemptCtx := callCtx
		cancel := context.CancelFunc(func() {})
		if hop.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(callCtx, hop.Timeout)
		}

		start := o.now()
		resp, err := provider.Invoke(attemptCtx, hopReq)
		latency := o.now().Sub(start)
		cancel()

		if callerCtx.Err() != nil {
			// Abandoned attempt: no outcome report, no window entry.
			return nil, lastReason, lastLatency, callerCtx.Err()
		}

		success := err == nil
		st.RecordOutcome(idx, success, latency)
		if o.opts.Health != nil {
			o.opts.Health.ReportOutcome(hop.ProviderID, success, latency)
		}

		if success {
			return resp, "", latency, nil
		}

		lastErr = err
		lastReason = providers.ClassifyError(err)
		lastLatency = latency

		if o.opts.Metrics != nil {
			o.opts.Metrics.RecordProviderError(hop.ProviderID, lastReason)
		}
		o.logger.Debug("attempt failed",
			"chain_id", st.ChainID(),
			"provider", hop.ProviderID,
			"attempt", attempt+1,
			"reason", lastReason,
			"error", err,
		)
	}

	return nil, lastReason, lastLatency, lastErr
}

// failOver decides whether exhausting the active hop advances the chain.
// Declarative chain conditions are checked first; then the windowed rules,
// gated by cooldown and firing caps. It returns true when the chain advanced
// and the call should continue at the new hop.
func (o *Orchestrator) failOver(rt *chainRuntime, fromIdx int, hop config.FallbackProvider, reason string, latency time.Duration) bool {
	st := rt.state

	var ruleID string
	targetIdx := -1
	tripped := false

	for i := range rt.conditions {
		if matchCondition(&rt.conditions[i], reason, latency) {
			tripped = true
			break
		}
	}

	if !tripped {
		rule := rt.evaluator.Evaluate(st)
		if rule == nil || !st.CanFire(rule) {
			return false
		}
		tripped = true
		ruleID = rule.ID

		switch rule.Action.Type {
		case config.ActionDisableProvider:
			st.DisableProvider(fromIdx)
		case config.ActionSwitchToTarget:
			if rule.Action.Target != "" {
				targetIdx = o.providerIndex(st.Chain(), rule.Action.Target)
			}
		}
	}

	// The recorded reason reflects a health-driven failover when the demoted
	// provider had fallen below its own eligibility threshold. Condition and
	// rule matching above still sees the classified attempt error.
	if !o.eligible(hop) {
		reason = providers.ReasonUnhealthy
	}

	wasFrozen := st.RecoveryFrozen()
	from, to, ok := st.Advance(ruleID, targetIdx, o.eligible)
	chain := st.Chain()

	if !wasFrozen && st.RecoveryFrozen() {
		o.logger.Warn("auto-recovery frozen",
			"chain_id", st.ChainID(),
			"attempts", st.RecoveryAttempts(),
			"error", ErrRecoveryFrozen,
		)
		if o.opts.Recorder != nil {
			o.opts.Recorder.Alerts().Raise(st.ChainID(), analytics.SeverityCritical,
				fmt.Sprintf("chain %s: %v after %d failed recovery attempts, manual reset required",
					st.ChainID(), ErrRecoveryFrozen, st.RecoveryAttempts()))
		}
	}

	if !ok {
		o.logger.Warn("chain exhausted",
			"chain_id", st.ChainID(),
			"last_provider", hop.ProviderID,
			"reason", reason,
		)
		o.recordExhaustion(st.ChainID(), hop.ProviderID, reason)
		return false
	}

	fromID := chain.Providers[from].ProviderID
	toID := chain.Providers[to].ProviderID

	o.logger.Info("failover",
		"chain_id", st.ChainID(),
		"from", fromID,
		"to", toID,
		"rule_id", ruleID,
		"reason", reason,
	)

	if o.opts.Recorder != nil {
		o.opts.Recorder.Record(&analytics.Event{
			ChainID:  st.ChainID(),
			Type:     analytics.EventFailover,
			Provider: fromID,
			Target:   toID,
			Reason:   reason,
		})
		o.opts.Recorder.Alerts().Raise(st.ChainID(), analytics.SeverityWarning,
			fmt.Sprintf("chain %s failed over from %s to %s (%s)", st.ChainID(), fromID, toID, reason))
	}
	if o.opts.Metrics != nil {
		o.opts.Metrics.RecordFailover(st.ChainID(), fromID, toID, reason)
		o.opts.Metrics.UpdateChainStatus(st.ChainID(), int(st.Status()))
	}
	return true
}

func (o *Orchestrator) recordExhaustion(chainID, providerID, reason string) {
	if o.opts.Recorder != nil {
		o.opts.Recorder.Alerts().Raise(chainID, analytics.SeverityCritical,
			fmt.Sprintf("chain %s exhausted: no eligible provider remains (last: %s, %s)", chainID, providerID, reason))
	}
	if o.opts.Metrics != nil {
		o.opts.Metrics.UpdateChainStatus(chainID, int(StatusExhausted))
	}
}

// eligible reports whether a provider's health score meets its hop threshold.
func (o *Orchestrator) eligible(p config.FallbackProvider) bool {
	if o.opts.Health == nil || p.HealthThreshold <= 0 {
		return true
	}
	return o.opts.Health.Score(p.ProviderID) >= p.HealthThreshold
}

func (o *Orchestrator) providerIndex(chain config.FallbackChain, providerID string) int {
	for i, p := range chain.Providers {
		if p.ProviderID == providerID {
			return i
		}
	}
	return -1
}

// callCeiling bounds one logical call: the sum of every hop's full retry
// budget. Hops without a timeout contribute nothing, leaving the ceiling to
// the caller's context.
func callCeiling(chain config.FallbackChain) time.Duration {
	var total time.Duration
	for _, p := range chain.Providers {
		if p.Timeout > 0 {
			total += p.Timeout * time.Duration(p.MaxRetries+1)
		}
	}
	return total
}
