package failover

import (
	"testing"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

func TestRuleEvaluator_ErrorRateNeedsMinSamples(t *testing.T) {
	st := NewChainState(testChainConfig(), config.RecoveryConfig{}, 16)
	eval := NewRuleEvaluator([]config.FailoverRule{
		{
			ID:      "err-rate",
			Trigger: config.Trigger{Type: config.TriggerErrorRate, Threshold: 0.1, Window: time.Minute},
		},
	}, 5)

	for i := 0; i < 4; i++ {
		st.RecordOutcome(0, false, 10*time.Millisecond)
	}
	if rule := eval.Evaluate(st); rule != nil {
		t.Errorf("Expected no rule below the sample floor, got %q", rule.ID)
	}

	st.RecordOutcome(0, false, 10*time.Millisecond)
	rule := eval.Evaluate(st)
	if rule == nil || rule.ID != "err-rate" {
		t.Errorf("Expected err-rate to trip at 5 samples, got %v", rule)
	}
}

func TestRuleEvaluator_ErrorRateThreshold(t *testing.T) {
	st := NewChainState(testChainConfig(), config.RecoveryConfig{}, 64)
	eval := NewRuleEvaluator([]config.FailoverRule{
		{
			ID:      "err-rate",
			Trigger: config.Trigger{Type: config.TriggerErrorRate, Threshold: 0.5, Window: time.Minute},
		},
	}, 1)

	// 1 failure in 4 = 0.25, below the threshold.
	st.RecordOutcome(0, false, 0)
	st.RecordOutcome(0, true, 0)
	st.RecordOutcome(0, true, 0)
	st.RecordOutcome(0, true, 0)
	if rule := eval.Evaluate(st); rule != nil {
		t.Errorf("Expected no rule at 25%% error rate, got %q", rule.ID)
	}

	// 4 failures in 8 = 0.5, at the threshold.
	st.RecordOutcome(0, false, 0)
	st.RecordOutcome(0, false, 0)
	st.RecordOutcome(0, false, 0)
	st.RecordOutcome(0, true, 0)
	if rule := eval.Evaluate(st); rule == nil {
		t.Error("Expected err-rate to trip at 50% error rate")
	}
}

func TestRuleEvaluator_LatencyAverage(t *testing.T) {
	st := NewChainState(testChainConfig(), config.RecoveryConfig{}, 16)
	eval := NewRuleEvaluator([]config.FailoverRule{
		{
			ID:      "slow",
			Trigger: config.Trigger{Type: config.TriggerLatency, Threshold: 500, Window: time.Minute},
		},
	}, 2)

	st.RecordOutcome(0, true, 200*time.Millisecond)
	st.RecordOutcome(0, true, 400*time.Millisecond)
	if rule := eval.Evaluate(st); rule != nil {
		t.Errorf("Expected no rule at 300ms average, got %q", rule.ID)
	}

	st.RecordOutcome(0, true, 2*time.Second)
	if rule := eval.Evaluate(st); rule == nil {
		t.Error("Expected slow rule to trip once the average crossed 500ms")
	}
}

func TestRuleEvaluator_ConsecutiveFailures(t *testing.T) {
	st := NewChainState(testChainConfig(), config.RecoveryConfig{}, 16)
	eval := NewRuleEvaluator([]config.FailoverRule{
		{
			ID:      "consec",
			Trigger: config.Trigger{Type: config.TriggerConsecutiveFailures, Threshold: 3},
		},
	}, 1)

	st.RecordOutcome(0, false, 0)
	st.RecordOutcome(0, false, 0)
	if rule := eval.Evaluate(st); rule != nil {
		t.Errorf("Expected no rule at 2 consecutive failures, got %q", rule.ID)
	}

	st.RecordOutcome(0, false, 0)
	if rule := eval.Evaluate(st); rule == nil {
		t.Error("Expected consec rule to trip at 3 consecutive failures")
	}

	// A success breaks the run.
	st.RecordOutcome(0, true, 0)
	if rule := eval.Evaluate(st); rule != nil {
		t.Errorf("Expected run broken by success, got %q", rule.ID)
	}
}

func TestRuleEvaluator_DeclarationOrderWins(t *testing.T) {
	st := NewChainState(testChainConfig(), config.RecoveryConfig{}, 16)
	eval := NewRuleEvaluator([]config.FailoverRule{
		{ID: "first", Trigger: config.Trigger{Type: config.TriggerConsecutiveFailures, Threshold: 2}},
		{ID: "second", Trigger: config.Trigger{Type: config.TriggerConsecutiveFailures, Threshold: 1}},
	}, 1)

	st.RecordOutcome(0, false, 0)
	st.RecordOutcome(0, false, 0)

	rule := eval.Evaluate(st)
	if rule == nil || rule.ID != "first" {
		t.Errorf("Expected the first declared satisfied rule, got %v", rule)
	}
}

func TestRuleEvaluator_ExhaustedChain(t *testing.T) {
	st := NewChainState(testChainConfig(), config.RecoveryConfig{}, 16)
	st.Advance("", -1, allEligible)
	st.Advance("", -1, allEligible)
	st.Advance("", -1, allEligible)

	eval := NewRuleEvaluator([]config.FailoverRule{
		{ID: "consec", Trigger: config.Trigger{Type: config.TriggerConsecutiveFailures, Threshold: 1}},
	}, 1)

	if rule := eval.Evaluate(st); rule != nil {
		t.Errorf("Expected no evaluation on an exhausted chain, got %q", rule.ID)
	}
}

func TestMatchCondition(t *testing.T) {
	tests := []struct {
		name    string
		cond    config.Condition
		reason  string
		latency time.Duration
		want    bool
	}{
		{
			name:   "error type match",
			cond:   config.Condition{Type: config.ConditionErrorType, ErrorType: "timeout"},
			reason: "timeout",
			want:   true,
		},
		{
			name:   "error type mismatch",
			cond:   config.Condition{Type: config.ConditionErrorType, ErrorType: "timeout"},
			reason: "rate_limited",
			want:   false,
		},
		{
			name:    "latency at threshold",
			cond:    config.Condition{Type: config.ConditionLatency, LatencyThreshold: 5 * time.Second},
			latency: 5 * time.Second,
			want:    true,
		},
		{
			name:    "latency below threshold",
			cond:    config.Condition{Type: config.ConditionLatency, LatencyThreshold: 5 * time.Second},
			latency: time.Second,
			want:    false,
		},
		{
			name:    "latency condition without threshold never matches",
			cond:    config.Condition{Type: config.ConditionLatency},
			latency: time.Hour,
			want:    false,
		},
		{
			name:   "unknown type",
			cond:   config.Condition{Type: "something_else"},
			reason: "timeout",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCondition(&tt.cond, tt.reason, tt.latency); got != tt.want {
				t.Errorf("matchCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}
