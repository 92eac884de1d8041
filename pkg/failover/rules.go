package failover

import (
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

// RuleEvaluator evaluates failover trigger rules against a chain's rolling
// outcome window. Rules are evaluated in declaration order; when several are
// satisfied at once the lowest index wins.
//
// Rate-based triggers (error_rate, latency) require a minimum sample count
// so a window with too few calls never trips a rule on low traffic.
type RuleEvaluator struct {
	rules      []config.FailoverRule
	minSamples int
}

// NewRuleEvaluator creates an evaluator for the given ordered rules.
func NewRuleEvaluator(rules []config.FailoverRule, minSamples int) *RuleEvaluator {
	if minSamples < 1 {
		minSamples = 1
	}
	return &RuleEvaluator{
		rules:      append([]config.FailoverRule(nil), rules...),
		minSamples: minSamples,
	}
}

// Evaluate returns the first rule (by declared order) whose trigger is
// currently satisfied for the chain's active provider, or nil. Cooldown and
// firing caps are the caller's concern (ChainState.CanFire); Evaluate judges
// trigger satisfaction only.
func (e *RuleEvaluator) Evaluate(st *ChainState) *config.FailoverRule {
	idx, _, ok := st.Active()
	if !ok {
		return nil
	}

	for i := range e.rules {
		if e.satisfied(&e.rules[i], st, idx) {
			return &e.rules[i]
		}
	}
	return nil
}

func (e *RuleEvaluator) satisfied(rule *config.FailoverRule, st *ChainState, idx int) bool {
	switch rule.Trigger.Type {
	case config.TriggerErrorRate:
		stats := st.StatsFor(idx, rule.Trigger.Window)
		return stats.Samples >= e.minSamples && stats.ErrorRate >= rule.Trigger.Threshold

	case config.TriggerLatency:
		// Simple average over the window. A percentile would also satisfy
		// the contract; average keeps the aggregate O(1) maintainable.
		stats := st.StatsFor(idx, rule.Trigger.Window)
		threshold := time.Duration(rule.Trigger.Threshold) * time.Millisecond
		return stats.Samples >= e.minSamples && stats.AverageLatency >= threshold

	case config.TriggerConsecutiveFailures:
		return st.ConsecutiveFailures(idx) >= int(rule.Trigger.Threshold)

	default:
		return false
	}
}

// matchCondition reports whether a declarative chain condition matches the
// classified failure reason and latency of the attempt that exhausted the
// active hop.
func matchCondition(cond *config.Condition, reason string, latency time.Duration) bool {
	switch cond.Type {
	case config.ConditionErrorType:
		return cond.ErrorType == reason
	case config.ConditionLatency:
		return cond.LatencyThreshold > 0 && latency >= cond.LatencyThreshold
	default:
		return false
	}
}
