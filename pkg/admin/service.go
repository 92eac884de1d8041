// Package admin is the administrative surface of the failover engine:
// configuration CRUD backed by the config store, chain state inspection,
// synthetic chain tests, event and analytics retrieval, and alert
// resolution. The HTTP handlers in handlers.go expose it as a JSON API.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
	"github.com/Zeus-Eternal/kari-failover/pkg/config"
	"github.com/Zeus-Eternal/kari-failover/pkg/failover"
	"github.com/Zeus-Eternal/kari-failover/pkg/health"
	"github.com/Zeus-Eternal/kari-failover/pkg/recovery"
	"github.com/Zeus-Eternal/kari-failover/pkg/store"
)

// Service coordinates the config store, the orchestrator, the health
// monitor, and the recovery scheduler: every admin mutation writes through
// to the store first, then swaps the runtime.
type Service struct {
	store     store.ConfigStore
	orch      *failover.Orchestrator
	recorder  *analytics.Recorder
	monitor   *health.Monitor
	scheduler *recovery.Scheduler
	logger    *slog.Logger
}

// NewService creates the admin service. Monitor and scheduler may be nil in
// reduced deployments; config mutations then only touch the orchestrator.
func NewService(cs store.ConfigStore, orch *failover.Orchestrator, rec *analytics.Recorder, mon *health.Monitor, sched *recovery.Scheduler) *Service {
	return &Service{
		store:     cs,
		orch:      orch,
		recorder:  rec,
		monitor:   mon,
		scheduler: sched,
		logger:    slog.Default().With("component", "admin.service"),
	}
}

// LoadAll loads every stored configuration into the runtime. Called once at
// engine start.
func (s *Service) LoadAll(ctx context.Context) error {
	configs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored configs: %w", err)
	}

	for _, fc := range configs {
		if err := s.applyRuntime(ctx, fc); err != nil {
			return fmt.Errorf("failed to load config %q: %w", fc.ID, err)
		}
	}

	s.logger.Info("stored configs loaded", "count", len(configs))
	return nil
}

// GetConfigs returns all stored fallback configurations, sorted by id.
func (s *Service) GetConfigs(ctx context.Context) ([]*config.FallbackConfig, error) {
	configs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs, nil
}

// GetConfig returns one stored configuration.
func (s *Service) GetConfig(ctx context.Context, id string) (*config.FallbackConfig, error) {
	return s.store.Get(ctx, id)
}

// PutConfig validates, persists, and applies a fallback configuration.
// Validation failures are rejected before anything is written; the store
// write is the single source of truth, and the runtime swap follows it
// atomically per config. A missing ID is generated.
func (s *Service) PutConfig(ctx context.Context, fc *config.FallbackConfig) (*config.FallbackConfig, error) {
	if fc.ID == "" {
		fc.ID = uuid.NewString()
	}

	config.ApplyFallbackDefaults(fc)
	if errs := config.ValidateFallback(fc, "config"); len(errs) > 0 {
		return nil, config.ValidationError{Errors: errs}
	}

	if err := s.store.Put(ctx, fc); err != nil {
		return nil, fmt.Errorf("failed to persist config %q: %w", fc.ID, err)
	}
	if err := s.applyRuntime(ctx, fc); err != nil {
		return nil, err
	}

	s.logger.Info("config stored and applied", "config_id", fc.ID, "chains", len(fc.Chains))
	return fc, nil
}

// DeleteConfig removes a configuration from the store and unloads its
// runtime state, probes, and recovery watches.
func (s *Service) DeleteConfig(ctx context.Context, id string) error {
	fc, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if s.scheduler != nil {
		for _, chain := range fc.Chains {
			s.scheduler.Unwatch(chain.ID)
		}
	}
	if s.monitor != nil {
		s.monitor.Remove(id)
	}
	s.orch.RemoveConfig(id)

	s.logger.Info("config deleted", "config_id", id)
	return nil
}

// ToggleConfig enables or disables traffic routing for a configuration,
// persisting the flag.
func (s *Service) ToggleConfig(ctx context.Context, id string, enabled bool) error {
	fc, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if fc.Enabled == enabled {
		return nil
	}

	fc.Enabled = enabled
	if err := s.store.Put(ctx, fc); err != nil {
		return fmt.Errorf("failed to persist config %q: %w", id, err)
	}
	return s.orch.SetEnabled(id, enabled)
}

// TestChain runs a sandboxed synthetic test against a chain.
func (s *Service) TestChain(ctx context.Context, chainID string, injectFailures int) (*failover.TestResult, error) {
	return s.orch.TestChain(chainID, injectFailures)
}

// ListEvents returns a chain's most recent events, newest first.
func (s *Service) ListEvents(ctx context.Context, chainID string, limit int) ([]*analytics.Event, error) {
	return s.recorder.Events(chainID, limit), nil
}

// GetAnalytics returns a chain's aggregate analytics.
func (s *Service) GetAnalytics(ctx context.Context, chainID string) (analytics.Analytics, error) {
	return s.recorder.Snapshot(chainID), nil
}

// GetChainState returns a point-in-time view of a chain's runtime state.
func (s *Service) GetChainState(ctx context.Context, chainID string) (failover.Snapshot, error) {
	return s.orch.Snapshot(chainID)
}

// GetProviderHealth returns the health of every probed provider.
func (s *Service) GetProviderHealth(ctx context.Context) []health.ProviderHealth {
	if s.monitor == nil {
		return nil
	}
	return s.monitor.Snapshot()
}

// ListAlerts returns raised alerts, optionally unresolved only.
func (s *Service) ListAlerts(ctx context.Context, unresolvedOnly bool) []*analytics.Alert {
	return s.recorder.Alerts().List(unresolvedOnly)
}

// ResolveAlert marks an alert resolved.
func (s *Service) ResolveAlert(ctx context.Context, alertID string) error {
	return s.recorder.Alerts().Resolve(alertID)
}

// ResetRecovery clears a chain's failed recovery attempts and unfreezes
// auto-recovery.
func (s *Service) ResetRecovery(ctx context.Context, chainID string) error {
	return s.orch.ResetRecovery(chainID)
}

// applyRuntime swaps a configuration into the orchestrator, the health
// monitor, and the recovery scheduler.
func (s *Service) applyRuntime(ctx context.Context, fc *config.FallbackConfig) error {
	if err := s.orch.ApplyConfig(fc); err != nil {
		return err
	}
	if s.monitor != nil {
		s.monitor.Apply(ctx, fc.ID, fc.HealthChecks)
	}
	if s.scheduler != nil {
		for _, chain := range fc.Chains {
			if st, ok := s.orch.State(chain.ID); ok {
				s.scheduler.Watch(ctx, st, fc.Recovery)
			}
		}
	}
	return nil
}
