package config

import "time"

// Config is the root configuration structure for the failover engine daemon.
// It contains the admin server settings, telemetry settings, engine tuning,
// storage backends, provider adapter endpoints, and the fallback
// configurations the engine loads at start.
type Config struct {
	// Server contains the admin HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Engine contains orchestrator tuning knobs shared by all chains.
	Engine EngineConfig `yaml:"engine"`

	// Store contains the configuration store backend settings.
	Store StoreConfig `yaml:"store"`

	// Analytics contains event log and retention settings.
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Providers lists the provider adapter endpoints to register at start.
	Providers []ProviderEndpoint `yaml:"providers"`

	// Fallbacks lists the fallback configurations to load at start.
	// Additional configurations can be created through the admin API.
	Fallbacks []FallbackConfig `yaml:"fallbacks"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8380"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the graceful shutdown budget.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "kari"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem label.
	// Default: "failover"
	Subsystem string `yaml:"subsystem"`
}

// EngineConfig contains orchestrator tuning shared by all chains.
type EngineConfig struct {
	// RetryBackoff is the fixed delay between retry attempts at the same
	// hop. Fixed rather than exponential: the hop timeout already bounds
	// total latency.
	// Default: 100ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// WindowSize is the per-provider rolling outcome window capacity.
	// Default: 256
	WindowSize int `yaml:"window_size"`

	// MinRuleSamples is the minimum number of window samples required
	// before a rate-based failover rule can trip. Prevents false positives
	// on low traffic.
	// Default: 5
	MinRuleSamples int `yaml:"min_rule_samples"`
}

// StoreConfig contains configuration store backend settings.
type StoreConfig struct {
	// Backend selects the store implementation: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the sqlite database file path when Backend is "sqlite".
	// Default: "data/configs.db"
	Path string `yaml:"path"`
}

// AnalyticsConfig contains event log and retention settings.
type AnalyticsConfig struct {
	// EventLogSize is the per-chain in-memory event ring capacity.
	// Default: 512
	EventLogSize int `yaml:"event_log_size"`

	// Backend selects the durable event store: "none", "memory" or "sqlite".
	// Default: "none"
	Backend string `yaml:"backend"`

	// Path is the sqlite database file path when Backend is "sqlite".
	// Default: "data/events.db"
	Path string `yaml:"path"`

	// RetentionDays is the maximum event age in the durable store.
	// 0 disables pruning.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for scheduled pruning.
	// Empty disables the schedule.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// ProviderEndpoint describes a provider adapter endpoint registered at start.
type ProviderEndpoint struct {
	// Name is the provider identifier referenced by fallback chains.
	Name string `yaml:"name"`

	// BaseURL is the adapter's API endpoint base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key. Optional.
	APIKey string `yaml:"api_key"`

	// InvokePath overrides the invocation request path.
	InvokePath string `yaml:"invoke_path"`

	// HealthPath overrides the health probe request path.
	HealthPath string `yaml:"health_path"`

	// Timeout is the adapter-level request timeout.
	Timeout time.Duration `yaml:"timeout"`
}
