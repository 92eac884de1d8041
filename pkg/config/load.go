package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the convention
// KARI_FAILOVER_SECTION_FIELD (e.g. KARI_FAILOVER_SERVER_LISTEN_ADDRESS) and
// always take precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("KARI_FAILOVER_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("KARI_FAILOVER_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("KARI_FAILOVER_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("KARI_FAILOVER_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("KARI_FAILOVER_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("KARI_FAILOVER_ENGINE_RETRY_BACKOFF"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.RetryBackoff = d
		}
	}
	if val := os.Getenv("KARI_FAILOVER_ENGINE_WINDOW_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.WindowSize = i
		}
	}
	if val := os.Getenv("KARI_FAILOVER_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := os.Getenv("KARI_FAILOVER_STORE_PATH"); val != "" {
		cfg.Store.Path = val
	}
	if val := os.Getenv("KARI_FAILOVER_ANALYTICS_BACKEND"); val != "" {
		cfg.Analytics.Backend = val
	}
	if val := os.Getenv("KARI_FAILOVER_ANALYTICS_PATH"); val != "" {
		cfg.Analytics.Path = val
	}
}
