// Package config defines the root YAML configuration for the failover daemon
// and the fallback domain entities (fallback configurations, chains,
// providers, health checks, failover rules, recovery policy).
//
// Loading applies defaults, then validates, then applies environment
// overrides (KARI_FAILOVER_*). Configurations are treated as immutable
// snapshots: a reload produces a new *Config and the engine swaps it
// atomically, so in-flight calls never observe a partially-updated
// configuration.
package config
