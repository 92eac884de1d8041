package failover

import (
	"fmt"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

// TestResult is the outcome of a synthetic chain test.
type TestResult struct {
	// Success reports whether the chain behaved as configured: a healthy
	// chain with no injected faults passes trivially, and an injected
	// failure burst must produce a failover to an eligible provider.
	Success bool `json:"success"`

	// FailoverTimeMs is the simulated time for the injected fault burst to
	// trip a rule and advance the chain. 0 when no faults were injected.
	FailoverTimeMs int64 `json:"failover_time_ms"`

	// RecoveryTimeMs is the simulated time for the demoted provider to be
	// promoted back. 0 when no faults were injected or recovery is not
	// applicable.
	RecoveryTimeMs int64 `json:"recovery_time_ms"`

	// Details describes what the test observed.
	Details string `json:"details"`
}

// TestChain runs a synthetic failure injection against a sandboxed clone of
// the chain's runtime state. Live traffic routing is never affected: the
// clone shares nothing with the live state, and a per-chain flag rejects
// concurrent tests against the same chain.
//
// With injectFailures <= 0 the test only verifies that the chain has an
// eligible active provider. With injectFailures > 0 the burst is fed into
// the clone's active window, the rules are evaluated, and the resulting
// failover and recovery behavior is reported.
func (o *Orchestrator) TestChain(chainID string, injectFailures int) (*TestResult, error) {
	o.mu.RLock()
	rt, ok := o.chains[chainID]
	o.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}

	if err := rt.state.BeginTest(); err != nil {
		return nil, err
	}
	defer rt.state.EndTest()

	clone := rt.state.Clone()

	idx, hop, active := clone.Active()
	if !active {
		return &TestResult{
			Success: false,
			Details: "chain is exhausted: no active provider to test",
		}, nil
	}

	if injectFailures <= 0 {
		if !o.eligible(hop) {
			return &TestResult{
				Success: false,
				Details: fmt.Sprintf("active provider %q is below its health threshold", hop.ProviderID),
			}, nil
		}
		return &TestResult{
			Success: true,
			Details: fmt.Sprintf("active provider %q healthy, no faults injected", hop.ProviderID),
		}, nil
	}

	start := time.Now()
	for i := 0; i < injectFailures; i++ {
		clone.RecordOutcome(idx, false, hop.Timeout)
	}

	rule := rt.evaluator.Evaluate(clone)
	if rule == nil {
		return &TestResult{
			Success: false,
			Details: fmt.Sprintf("injected %d failures but no rule tripped", injectFailures),
		}, nil
	}
	if !clone.CanFire(rule) {
		return &TestResult{
			Success: false,
			Details: fmt.Sprintf("rule %q tripped but is gated by cooldown or firing cap", rule.ID),
		}, nil
	}

	targetIdx := -1
	if rule.Action.Type == config.ActionSwitchToTarget && rule.Action.Target != "" {
		targetIdx = o.providerIndex(clone.Chain(), rule.Action.Target)
	}

	from, to, ok := clone.Advance(rule.ID, targetIdx, o.eligible)
	failoverMs := time.Since(start).Milliseconds()
	if !ok {
		return &TestResult{
			Success:        false,
			FailoverTimeMs: failoverMs,
			Details:        fmt.Sprintf("rule %q fired but no eligible failover target", rule.ID),
		}, nil
	}

	chain := clone.Chain()
	result := &TestResult{
		Success:        true,
		FailoverTimeMs: failoverMs,
		Details: fmt.Sprintf("rule %q advanced chain from %q to %q",
			rule.ID, chain.Providers[from].ProviderID, chain.Providers[to].ProviderID),
	}

	// Verify the demoted provider could be promoted back once healthy.
	if _, _, promoted := clone.Promote(o.eligible); promoted {
		result.RecoveryTimeMs = time.Since(start).Milliseconds()
		result.Details += "; recovery promotion verified"
	}

	return result, nil
}
