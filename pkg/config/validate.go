package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "fallbacks[0].chains[1].providers[0].weight").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to
// all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All validation errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateAnalytics(&cfg.Analytics)...)
	errs = append(errs, validateProviders(cfg.Providers)...)

	seen := make(map[string]bool)
	for i := range cfg.Fallbacks {
		prefix := fmt.Sprintf("fallbacks[%d]", i)
		fc := &cfg.Fallbacks[i]
		if seen[fc.ID] {
			errs = append(errs, FieldError{prefix + ".id", fmt.Sprintf("duplicate configuration id %q", fc.ID)})
		}
		seen[fc.ID] = true
		errs = append(errs, ValidateFallback(fc, prefix)...)
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// ValidateFallback validates a single fallback configuration. The admin API
// runs it at PutConfig time so malformed configurations never reach the
// runtime.
func ValidateFallback(fc *FallbackConfig, prefix string) []FieldError {
	var errs []FieldError
	if prefix == "" {
		prefix = "fallback"
	}

	if fc.ID == "" {
		errs = append(errs, FieldError{prefix + ".id", "id is required"})
	}
	if len(fc.Chains) == 0 {
		errs = append(errs, FieldError{prefix + ".chains", "at least one chain is required"})
	}

	chainIDs := make(map[string]bool)
	for i := range fc.Chains {
		cp := fmt.Sprintf("%s.chains[%d]", prefix, i)
		ch := &fc.Chains[i]

		if ch.ID == "" {
			errs = append(errs, FieldError{cp + ".id", "chain id is required"})
		}
		if chainIDs[ch.ID] {
			errs = append(errs, FieldError{cp + ".id", fmt.Sprintf("duplicate chain id %q", ch.ID)})
		}
		chainIDs[ch.ID] = true

		if len(ch.Providers) == 0 {
			errs = append(errs, FieldError{cp + ".providers", "chain must list at least one provider"})
		}
		for j := range ch.Providers {
			pp := fmt.Sprintf("%s.providers[%d]", cp, j)
			p := &ch.Providers[j]
			if p.ProviderID == "" {
				errs = append(errs, FieldError{pp + ".provider_id", "provider id is required"})
			}
			if p.Weight < 0 || p.Weight > 1 {
				errs = append(errs, FieldError{pp + ".weight", fmt.Sprintf("weight %v outside [0,1]", p.Weight)})
			}
			if p.HealthThreshold < 0 || p.HealthThreshold > 1 {
				errs = append(errs, FieldError{pp + ".health_threshold", fmt.Sprintf("health threshold %v outside [0,1]", p.HealthThreshold)})
			}
			if p.MaxRetries < 0 {
				errs = append(errs, FieldError{pp + ".max_retries", "max retries must not be negative"})
			}
			if p.Timeout < 0 {
				errs = append(errs, FieldError{pp + ".timeout", "timeout must not be negative"})
			}
		}
		for j := range ch.Conditions {
			cnd := &ch.Conditions[j]
			sp := fmt.Sprintf("%s.conditions[%d]", cp, j)
			switch cnd.Type {
			case ConditionErrorType:
				if cnd.ErrorType == "" {
					errs = append(errs, FieldError{sp + ".error_type", "error type is required"})
				}
			case ConditionLatency:
				if cnd.LatencyThreshold <= 0 {
					errs = append(errs, FieldError{sp + ".latency_threshold", "latency threshold must be positive"})
				}
			default:
				errs = append(errs, FieldError{sp + ".type", fmt.Sprintf("unknown condition type %q", cnd.Type)})
			}
		}
	}

	for i := range fc.HealthChecks {
		hp := fmt.Sprintf("%s.health_checks[%d]", prefix, i)
		hc := &fc.HealthChecks[i]
		if hc.ProviderID == "" {
			errs = append(errs, FieldError{hp + ".provider_id", "provider id is required"})
		}
		if hc.Type != ProbePing && hc.Type != ProbeSynthetic {
			errs = append(errs, FieldError{hp + ".type", fmt.Sprintf("unknown probe type %q", hc.Type)})
		}
		if hc.Interval <= 0 {
			errs = append(errs, FieldError{hp + ".interval", "interval must be positive"})
		}
		if hc.HealthyThreshold <= 0 {
			errs = append(errs, FieldError{hp + ".healthy_threshold", "healthy threshold must be positive"})
		}
		if hc.UnhealthyThreshold <= 0 {
			errs = append(errs, FieldError{hp + ".unhealthy_threshold", "unhealthy threshold must be positive"})
		}
	}

	ruleIDs := make(map[string]bool)
	for i := range fc.Rules {
		rp := fmt.Sprintf("%s.rules[%d]", prefix, i)
		r := &fc.Rules[i]
		if r.ID == "" {
			errs = append(errs, FieldError{rp + ".id", "rule id is required"})
		}
		if ruleIDs[r.ID] {
			errs = append(errs, FieldError{rp + ".id", fmt.Sprintf("duplicate rule id %q", r.ID)})
		}
		ruleIDs[r.ID] = true

		switch r.Trigger.Type {
		case TriggerErrorRate:
			if r.Trigger.Threshold < 0 || r.Trigger.Threshold > 1 {
				errs = append(errs, FieldError{rp + ".trigger.threshold", fmt.Sprintf("error rate threshold %v outside [0,1]", r.Trigger.Threshold)})
			}
		case TriggerLatency, TriggerConsecutiveFailures:
			if r.Trigger.Threshold <= 0 {
				errs = append(errs, FieldError{rp + ".trigger.threshold", "threshold must be positive"})
			}
		default:
			errs = append(errs, FieldError{rp + ".trigger.type", fmt.Sprintf("unknown trigger type %q", r.Trigger.Type)})
		}
		if r.Trigger.Window <= 0 {
			errs = append(errs, FieldError{rp + ".trigger.window", "window must be positive"})
		}
		if r.Action.Type != ActionSwitchToTarget && r.Action.Type != ActionDisableProvider {
			errs = append(errs, FieldError{rp + ".action.type", fmt.Sprintf("unknown action type %q", r.Action.Type)})
		}
		if r.Cooldown < 0 {
			errs = append(errs, FieldError{rp + ".cooldown", "cooldown must not be negative"})
		}
		if r.MaxFailovers < 0 {
			errs = append(errs, FieldError{rp + ".max_failovers", "max failovers must not be negative"})
		}
	}

	rc := &fc.Recovery
	if rc.RecoveryThreshold < 0 || rc.RecoveryThreshold > 1 {
		errs = append(errs, FieldError{prefix + ".recovery.recovery_threshold", fmt.Sprintf("recovery threshold %v outside [0,1]", rc.RecoveryThreshold)})
	}
	if rc.AutoRecovery && rc.HealthCheckInterval <= 0 {
		errs = append(errs, FieldError{prefix + ".recovery.health_check_interval", "health check interval must be positive when auto recovery is enabled"})
	}
	if rc.RecoveryDelay < 0 {
		errs = append(errs, FieldError{prefix + ".recovery.recovery_delay", "recovery delay must not be negative"})
	}
	if rc.MaxRecoveryAttempts < 0 {
		errs = append(errs, FieldError{prefix + ".recovery.max_recovery_attempts", "max recovery attempts must not be negative"})
	}

	return errs
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError
	if s.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "listen address is required"})
	}
	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError
	switch t.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown log level %q", t.Logging.Level)})
	}
	switch t.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown log format %q", t.Logging.Format)})
	}
	return errs
}

func validateEngine(e *EngineConfig) []FieldError {
	var errs []FieldError
	if e.RetryBackoff < 0 {
		errs = append(errs, FieldError{"engine.retry_backoff", "retry backoff must not be negative"})
	}
	if e.WindowSize <= 0 {
		errs = append(errs, FieldError{"engine.window_size", "window size must be positive"})
	}
	if e.MinRuleSamples < 0 {
		errs = append(errs, FieldError{"engine.min_rule_samples", "min rule samples must not be negative"})
	}
	return errs
}

func validateStore(s *StoreConfig) []FieldError {
	var errs []FieldError
	switch s.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"store.backend", fmt.Sprintf("unknown backend %q", s.Backend)})
	}
	if s.Backend == "sqlite" && s.Path == "" {
		errs = append(errs, FieldError{"store.path", "path is required for sqlite backend"})
	}
	return errs
}

func validateAnalytics(a *AnalyticsConfig) []FieldError {
	var errs []FieldError
	switch a.Backend {
	case "none", "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"analytics.backend", fmt.Sprintf("unknown backend %q", a.Backend)})
	}
	if a.Backend == "sqlite" && a.Path == "" {
		errs = append(errs, FieldError{"analytics.path", "path is required for sqlite backend"})
	}
	if a.EventLogSize <= 0 {
		errs = append(errs, FieldError{"analytics.event_log_size", "event log size must be positive"})
	}
	if a.RetentionDays < 0 {
		errs = append(errs, FieldError{"analytics.retention_days", "retention days must not be negative"})
	}
	return errs
}

func validateProviders(eps []ProviderEndpoint) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool)
	for i, ep := range eps {
		prefix := fmt.Sprintf("providers[%d]", i)
		if ep.Name == "" {
			errs = append(errs, FieldError{prefix + ".name", "name is required"})
		}
		if seen[ep.Name] {
			errs = append(errs, FieldError{prefix + ".name", fmt.Sprintf("duplicate provider name %q", ep.Name)})
		}
		seen[ep.Name] = true
		if ep.BaseURL == "" {
			errs = append(errs, FieldError{prefix + ".base_url", "base url is required"})
		}
	}
	return errs
}
