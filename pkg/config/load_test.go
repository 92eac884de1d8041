package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  listen_address: "127.0.0.1:9000"
engine:
  retry_backoff: 50ms
providers:
  - name: openai-primary
    base_url: "http://localhost:8081"
  - name: anthropic-backup
    base_url: "http://localhost:8082"
    timeout: 10s
fallbacks:
  - id: cfg-1
    name: Chat
    enabled: true
    chains:
      - id: chat
        providers:
          - provider_id: openai-primary
            weight: 1.0
            max_retries: 3
          - provider_id: anthropic-backup
            weight: 0.8
            max_retries: 2
    rules:
      - id: err-rate
        trigger:
          type: error_rate
          threshold: 0.1
          window: 60s
        action:
          type: switch_to_target
        cooldown: 300s
    recovery:
      auto_recovery: true
      recovery_delay: 120s
      recovery_threshold: 0.9
`

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("Expected file listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Engine.RetryBackoff != 50*time.Millisecond {
		t.Errorf("Expected 50ms retry backoff, got %v", cfg.Engine.RetryBackoff)
	}

	// Defaults fill what the file omits.
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("Expected default shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Telemetry.Logging.Level != DefaultLogLevel {
		t.Errorf("Expected default log level, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Engine.WindowSize != DefaultWindowSize {
		t.Errorf("Expected default window size, got %d", cfg.Engine.WindowSize)
	}
	if cfg.Providers[0].Timeout != DefaultProviderTimeout {
		t.Errorf("Expected default provider timeout, got %v", cfg.Providers[0].Timeout)
	}
	if cfg.Providers[1].Timeout != 10*time.Second {
		t.Errorf("Expected explicit provider timeout kept, got %v", cfg.Providers[1].Timeout)
	}

	if len(cfg.Fallbacks) != 1 {
		t.Fatalf("Expected 1 fallback config, got %d", len(cfg.Fallbacks))
	}
	fc := cfg.Fallbacks[0]
	if fc.Chains[0].Providers[0].Timeout != DefaultHopTimeout {
		t.Errorf("Expected default hop timeout, got %v", fc.Chains[0].Providers[0].Timeout)
	}
	if fc.Rules[0].Cooldown != 300*time.Second {
		t.Errorf("Expected 300s cooldown, got %v", fc.Rules[0].Cooldown)
	}
	if fc.Rules[0].Period != time.Minute {
		t.Errorf("Expected rule period defaulted to the trigger window, got %v", fc.Rules[0].Period)
	}
	if fc.Recovery.MaxRecoveryAttempts != 3 {
		t.Errorf("Expected default recovery attempt cap, got %d", fc.Recovery.MaxRecoveryAttempts)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfigFile(t, "server: [not: valid")); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	bad := `
fallbacks:
  - id: cfg-1
    chains:
      - id: chat
        providers: []
`
	if _, err := LoadConfig(writeConfigFile(t, bad)); err == nil {
		t.Error("Expected validation failure for an empty provider list")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("KARI_FAILOVER_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("KARI_FAILOVER_LOG_LEVEL", "debug")
	t.Setenv("KARI_FAILOVER_ENGINE_WINDOW_SIZE", "128")

	cfg, err := LoadConfigWithEnvOverrides(writeConfigFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("Expected env override for listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected env override for log level, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Engine.WindowSize != 128 {
		t.Errorf("Expected env override for window size, got %d", cfg.Engine.WindowSize)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("KARI_FAILOVER_LOG_LEVEL", "shouting")

	if _, err := LoadConfigWithEnvOverrides(writeConfigFile(t, sampleYAML)); err == nil {
		t.Error("Expected validation to reject an invalid override")
	}
}
