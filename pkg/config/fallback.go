package config

import "time"

// Trigger types for failover rules.
const (
	TriggerErrorRate           = "error_rate"
	TriggerLatency             = "latency"
	TriggerConsecutiveFailures = "consecutive_failures"
)

// Action types for failover rules.
const (
	ActionSwitchToTarget  = "switch_to_target"
	ActionDisableProvider = "disable_provider"
)

// Health check probe types.
const (
	ProbePing      = "ping"
	ProbeSynthetic = "synthetic_request"
)

// Condition types for declarative chain conditions.
const (
	ConditionErrorType = "error_type"
	ConditionLatency   = "latency"
)

// FallbackConfig is the top-level fallback configuration entity. It owns an
// ordered set of chains, the health check definitions, the failover rules,
// and the recovery policy. Owned by the configuration store; loaded at engine
// start and on explicit reload; mutated only through the administrative API.
type FallbackConfig struct {
	// ID uniquely identifies this configuration.
	ID string `yaml:"id" json:"id"`

	// Name is the display name.
	Name string `yaml:"name" json:"name"`

	// Enabled controls whether the engine routes traffic for this
	// configuration's chains.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Chains is the ordered set of fallback chains.
	Chains []FallbackChain `yaml:"chains" json:"chains"`

	// HealthChecks defines the periodic probes driving provider status.
	HealthChecks []HealthCheck `yaml:"health_checks" json:"health_checks"`

	// Rules is the ordered list of failover trigger rules. Declaration
	// order is the tie-break: when several rules are satisfied at once,
	// the lowest index wins.
	Rules []FailoverRule `yaml:"rules" json:"rules"`

	// Recovery is the automatic recovery policy for all chains in this
	// configuration.
	Recovery RecoveryConfig `yaml:"recovery" json:"recovery"`
}

// FallbackChain is an ordered list of providers serving one logical
// capability. Provider order within a chain is significant and stable:
// removing a provider shifts subsequent indices but never changes the
// relative order of the remainder.
type FallbackChain struct {
	// ID uniquely identifies this chain. Requests are tagged with it.
	ID string `yaml:"id" json:"id"`

	// Name is the display name.
	Name string `yaml:"name" json:"name"`

	// Priority orders chains serving the same logical service.
	// Lower is tried first.
	Priority int `yaml:"priority" json:"priority"`

	// Providers is the fallback order. Index 0 is the nominal provider.
	Providers []FallbackProvider `yaml:"providers" json:"providers"`

	// Conditions are declarative triggers independent of the failover
	// rules, e.g. "on timeout error, fall back" or "on latency above
	// 5000ms, fall back". A matching condition advances the chain without
	// waiting for a windowed rule to trip.
	Conditions []Condition `yaml:"conditions" json:"conditions"`
}

// FallbackProvider is one hop in a fallback chain.
type FallbackProvider struct {
	// ProviderID references a registered provider adapter.
	ProviderID string `yaml:"provider_id" json:"provider_id"`

	// Model optionally pins a model identifier for this hop.
	Model string `yaml:"model" json:"model,omitempty"`

	// Weight is informational load-distribution metadata in [0,1]. It does
	// not affect selection order.
	Weight float64 `yaml:"weight" json:"weight"`

	// MaxRetries is the number of additional attempts at this hop before
	// moving on (total attempts = MaxRetries + 1).
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// Timeout bounds each attempt at this hop.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// HealthThreshold is the minimum rolling health score in [0,1] for
	// this provider to be eligible as a failover target.
	HealthThreshold float64 `yaml:"health_threshold" json:"health_threshold"`
}

// Condition is a declarative per-chain failover trigger.
type Condition struct {
	// Type is the condition type: "error_type" or "latency".
	Type string `yaml:"type" json:"type"`

	// ErrorType matches the classified failure reason when Type is
	// "error_type" (timeout, rate_limited, network_error, provider_error).
	ErrorType string `yaml:"error_type" json:"error_type,omitempty"`

	// LatencyThreshold trips the condition when Type is "latency" and the
	// attempt latency meets or exceeds it.
	LatencyThreshold time.Duration `yaml:"latency_threshold" json:"latency_threshold,omitempty"`
}

// HealthCheck defines a periodic probe against one provider.
type HealthCheck struct {
	// ProviderID is the probe target.
	ProviderID string `yaml:"provider_id" json:"provider_id"`

	// Type is the probe type: "ping" or "synthetic_request".
	Type string `yaml:"type" json:"type"`

	// Interval is the probe period.
	Interval time.Duration `yaml:"interval" json:"interval"`

	// Timeout bounds each probe.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Retries is the number of additional probe attempts within one tick
	// before the tick is recorded as a failure.
	Retries int `yaml:"retries" json:"retries"`

	// HealthyThreshold is the consecutive successes required to mark the
	// provider healthy.
	HealthyThreshold int `yaml:"healthy_threshold" json:"healthy_threshold"`

	// UnhealthyThreshold is the consecutive failures required to mark the
	// provider unhealthy.
	UnhealthyThreshold int `yaml:"unhealthy_threshold" json:"unhealthy_threshold"`
}

// FailoverRule is a windowed failover trigger with cooldown and a cap on
// firings (a circuit breaker on the breaker itself).
type FailoverRule struct {
	// ID uniquely identifies this rule.
	ID string `yaml:"id" json:"id"`

	// Name is the display name.
	Name string `yaml:"name" json:"name"`

	// Trigger is the windowed condition that trips the rule.
	Trigger Trigger `yaml:"trigger" json:"trigger"`

	// Action describes what firing the rule does.
	Action Action `yaml:"action" json:"action"`

	// Cooldown is the minimum time between firings of this rule for the
	// same chain.
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`

	// MaxFailovers caps firings within Period. 0 means uncapped.
	MaxFailovers int `yaml:"max_failovers" json:"max_failovers"`

	// Period is the rolling period for the MaxFailovers cap. Defaults to
	// the trigger window when unset.
	Period time.Duration `yaml:"period" json:"period"`
}

// Trigger is the windowed condition of a failover rule.
type Trigger struct {
	// Type is the trigger type: "error_rate", "latency" or
	// "consecutive_failures".
	Type string `yaml:"type" json:"type"`

	// Threshold is the trip threshold. For error_rate it is a fraction in
	// [0,1]; for latency it is milliseconds; for consecutive_failures it
	// is a count.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// Window is the evaluation window duration.
	Window time.Duration `yaml:"window" json:"window"`
}

// Action describes the effect of a fired rule.
type Action struct {
	// Type is the action type: "switch_to_target" or "disable_provider".
	Type string `yaml:"type" json:"type"`

	// Target optionally names a provider for switch_to_target. Empty means
	// the next eligible provider in chain order.
	Target string `yaml:"target" json:"target,omitempty"`
}

// RecoveryConfig is the automatic recovery policy.
type RecoveryConfig struct {
	// AutoRecovery enables the recovery scheduler for this configuration.
	AutoRecovery bool `yaml:"auto_recovery" json:"auto_recovery"`

	// RecoveryDelay is the minimum dwell time on a fallback provider
	// before recovery is considered.
	RecoveryDelay time.Duration `yaml:"recovery_delay" json:"recovery_delay"`

	// HealthCheckInterval is the recovery scheduler tick period.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`

	// RecoveryThreshold is the health score required to promote a
	// provider, in [0,1].
	RecoveryThreshold float64 `yaml:"recovery_threshold" json:"recovery_threshold"`

	// MaxRecoveryAttempts caps failed promotions per chain per incident.
	// Exceeding the cap freezes auto-recovery until manual reset or
	// configuration reload.
	MaxRecoveryAttempts int `yaml:"max_recovery_attempts" json:"max_recovery_attempts"`
}

// ChainByID returns the chain with the given id, or nil.
func (c *FallbackConfig) ChainByID(id string) *FallbackChain {
	for i := range c.Chains {
		if c.Chains[i].ID == id {
			return &c.Chains[i]
		}
	}
	return nil
}
