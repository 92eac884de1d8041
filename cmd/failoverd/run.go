package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zeus-Eternal/kari-failover/pkg/admin"
	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
	"github.com/Zeus-Eternal/kari-failover/pkg/analytics/retention"
	eventstore "github.com/Zeus-Eternal/kari-failover/pkg/analytics/storage"
	"github.com/Zeus-Eternal/kari-failover/pkg/config"
	"github.com/Zeus-Eternal/kari-failover/pkg/failover"
	"github.com/Zeus-Eternal/kari-failover/pkg/health"
	"github.com/Zeus-Eternal/kari-failover/pkg/providers"
	"github.com/Zeus-Eternal/kari-failover/pkg/recovery"
	"github.com/Zeus-Eternal/kari-failover/pkg/server"
	"github.com/Zeus-Eternal/kari-failover/pkg/store"
	telemetryhealth "github.com/Zeus-Eternal/kari-failover/pkg/telemetry/health"
	"github.com/Zeus-Eternal/kari-failover/pkg/telemetry/logging"
	"github.com/Zeus-Eternal/kari-failover/pkg/telemetry/metrics"
)

var (
	flagListen   string
	flagLogLevel string
	flagWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the failover orchestration daemon",
	Long: `Start the daemon: register provider adapters, load fallback
configurations from the store and the config file, begin health probing
and recovery scheduling, and serve the admin HTTP API.

The daemon runs until it receives SIGINT or SIGTERM, then shuts down
gracefully within the configured shutdown timeout.

Examples:
  # Start with the default config file
  failoverd run

  # Start on a different listen address with config hot reload
  failoverd run --listen 0.0.0.0:8380 --watch`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&flagListen, "listen", "", "override the admin listen address")
	runCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "override the log level")
	runCmd.Flags().BoolVar(&flagWatch, "watch", false, "reload fallback configurations on config file changes")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Server.ListenAddress = flagListen
	}
	if flagLogLevel != "" {
		cfg.Telemetry.Logging.Level = flagLogLevel
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("starting failoverd",
		"version", Version,
		"config", cfgFile,
		"listen", cfg.Server.ListenAddress,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := providers.NewRegistry()
	defer registry.Close()
	for _, ep := range cfg.Providers {
		provider, err := providers.NewHTTPProvider(providers.Config{
			Name:       ep.Name,
			BaseURL:    ep.BaseURL,
			APIKey:     ep.APIKey,
			InvokePath: ep.InvokePath,
			HealthPath: ep.HealthPath,
			Timeout:    ep.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create provider %q: %w", ep.Name, err)
		}
		registry.Register(provider)
	}
	logger.Info("providers registered", "count", registry.Len())

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	events, err := newEventStore(&cfg.Analytics)
	if err != nil {
		return err
	}

	recorder := analytics.NewRecorder(&analytics.Config{
		EventLogSize: cfg.Analytics.EventLogSize,
		Store:        events,
	})
	defer recorder.Close()

	if events != nil {
		defer events.Close()
		if cfg.Analytics.RetentionDays > 0 && cfg.Analytics.PruneSchedule != "" {
			pruner := retention.NewPruner(events, &retention.Config{
				RetentionDays: cfg.Analytics.RetentionDays,
				PruneSchedule: cfg.Analytics.PruneSchedule,
			})
			if err := pruner.Start(ctx); err != nil {
				return fmt.Errorf("failed to start event pruning: %w", err)
			}
			defer pruner.Stop()
		}
	}

	configStore, err := newConfigStore(&cfg.Store)
	if err != nil {
		return err
	}
	defer configStore.Close()

	monitor := health.NewMonitor(registry, health.Options{
		Recorder:   recorder,
		Metrics:    collector,
		WindowSize: cfg.Engine.WindowSize,
	})
	defer monitor.Close()

	orch := failover.NewOrchestrator(failover.Options{
		Registry: registry,
		Health:   monitor,
		Recorder: recorder,
		Metrics:  collector,
		Engine:   cfg.Engine,
	})

	scheduler := recovery.NewScheduler(recovery.Options{
		Health:   monitor,
		Recorder: recorder,
		Metrics:  collector,
	})
	defer scheduler.Close()

	service := admin.NewService(configStore, orch, recorder, monitor, scheduler)
	if err := service.LoadAll(ctx); err != nil {
		return fmt.Errorf("failed to load stored configurations: %w", err)
	}
	if err := seedFallbacks(ctx, service, cfg.Fallbacks); err != nil {
		return err
	}
	logger.Info("fallback configurations loaded", "chains", len(orch.ChainIDs()))

	checker := telemetryhealth.New(5 * time.Second)
	checker.RegisterCheck("config_store", func(ctx context.Context) error {
		_, err := configStore.List(ctx)
		return err
	})
	checker.RegisterCheck("providers", func(ctx context.Context) error {
		if registry.Len() == 0 {
			return fmt.Errorf("no providers registered")
		}
		return nil
	})

	handler := admin.NewHandler(service, orch)
	srv := server.NewServer(cfg.Server, handler, checker, collector)

	if flagWatch {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		defer watcher.Stop()
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				if err := seedFallbacks(ctx, service, next.Fallbacks); err != nil {
					logger.Error("fallback reload failed", "error", err)
				}
			})
			if err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	return srv.Start(ctx)
}

// newEventStore builds the durable analytics event store, or nil when the
// backend is "none".
func newEventStore(cfg *config.AnalyticsConfig) (analytics.Storage, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return eventstore.NewMemoryStore(), nil
	case "sqlite":
		s, err := eventstore.NewSQLiteStore(&eventstore.SQLiteConfig{Path: cfg.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown analytics backend %q", cfg.Backend)
	}
}

func newConfigStore(cfg *config.StoreConfig) (store.ConfigStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// seedFallbacks upserts the fallback configurations declared in the config
// file. Stored configurations created through the admin API are untouched.
func seedFallbacks(ctx context.Context, service *admin.Service, fallbacks []config.FallbackConfig) error {
	for i := range fallbacks {
		fc := fallbacks[i]
		if _, err := service.PutConfig(ctx, &fc); err != nil {
			return fmt.Errorf("failed to apply fallback configuration %q: %w", fc.ID, err)
		}
	}
	return nil
}
