package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultListenAddress   = "127.0.0.1:8380"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "kari"
	DefaultMetricsSubsystem = "failover"

	DefaultRetryBackoff   = 100 * time.Millisecond
	DefaultWindowSize     = 256
	DefaultMinRuleSamples = 5

	DefaultStoreBackend = "memory"
	DefaultStorePath    = "data/configs.db"

	DefaultEventLogSize     = 512
	DefaultAnalyticsBackend = "none"
	DefaultAnalyticsPath    = "data/events.db"
	DefaultRetentionDays    = 30
	DefaultPruneSchedule    = "0 3 * * *"

	DefaultProviderTimeout = 60 * time.Second

	DefaultHopTimeout         = 30 * time.Second
	DefaultHealthCheckTimeout = 5 * time.Second
)

// ApplyDefaults fills zero-valued fields in cfg with default values.
// It is called by LoadConfig before validation.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}

	if cfg.Engine.RetryBackoff == 0 {
		cfg.Engine.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Engine.WindowSize == 0 {
		cfg.Engine.WindowSize = DefaultWindowSize
	}
	if cfg.Engine.MinRuleSamples == 0 {
		cfg.Engine.MinRuleSamples = DefaultMinRuleSamples
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}

	if cfg.Analytics.EventLogSize == 0 {
		cfg.Analytics.EventLogSize = DefaultEventLogSize
	}
	if cfg.Analytics.Backend == "" {
		cfg.Analytics.Backend = DefaultAnalyticsBackend
	}
	if cfg.Analytics.Path == "" {
		cfg.Analytics.Path = DefaultAnalyticsPath
	}
	if cfg.Analytics.RetentionDays == 0 {
		cfg.Analytics.RetentionDays = DefaultRetentionDays
	}
	if cfg.Analytics.PruneSchedule == "" {
		cfg.Analytics.PruneSchedule = DefaultPruneSchedule
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = DefaultProviderTimeout
		}
	}

	for i := range cfg.Fallbacks {
		ApplyFallbackDefaults(&cfg.Fallbacks[i])
	}
}

// ApplyFallbackDefaults fills zero-valued fields in a fallback configuration.
// PutConfig applies it to configurations created through the admin API.
func ApplyFallbackDefaults(fc *FallbackConfig) {
	for i := range fc.Chains {
		for j := range fc.Chains[i].Providers {
			p := &fc.Chains[i].Providers[j]
			if p.Timeout == 0 {
				p.Timeout = DefaultHopTimeout
			}
		}
	}
	for i := range fc.HealthChecks {
		hc := &fc.HealthChecks[i]
		if hc.Type == "" {
			hc.Type = ProbePing
		}
		if hc.Interval == 0 {
			hc.Interval = 30 * time.Second
		}
		if hc.Timeout == 0 {
			hc.Timeout = DefaultHealthCheckTimeout
		}
		if hc.HealthyThreshold == 0 {
			hc.HealthyThreshold = 2
		}
		if hc.UnhealthyThreshold == 0 {
			hc.UnhealthyThreshold = 3
		}
	}
	for i := range fc.Rules {
		r := &fc.Rules[i]
		if r.Trigger.Window == 0 {
			r.Trigger.Window = time.Minute
		}
		if r.Period == 0 {
			r.Period = r.Trigger.Window
		}
		if r.Action.Type == "" {
			r.Action.Type = ActionSwitchToTarget
		}
	}
	if fc.Recovery.HealthCheckInterval == 0 {
		fc.Recovery.HealthCheckInterval = 30 * time.Second
	}
	if fc.Recovery.RecoveryThreshold == 0 {
		fc.Recovery.RecoveryThreshold = 0.8
	}
	if fc.Recovery.MaxRecoveryAttempts == 0 {
		fc.Recovery.MaxRecoveryAttempts = 3
	}
}
