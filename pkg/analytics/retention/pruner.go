// Package retention enforces age-based retention on the durable event log:
// a Pruner deletes events older than the configured retention period, either
// on demand or on a cron schedule it runs itself.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain events.
	// 0 means keep events forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning, e.g.
	// "0 3 * * *" for daily at 3 AM. Empty disables scheduled pruning;
	// Prune can still be called directly.
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces the retention period on the event store.
type Pruner struct {
	storage analytics.Storage
	config  *Config
	logger  *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPruner creates a new retention pruner.
func NewPruner(storage analytics.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "analytics.retention"),
	}
}

// Prune deletes events older than the retention period and returns the
// number deleted. A zero retention period is a no-op.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		p.logger.Debug("retention period not configured, skipping prune")
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	deleted, err := p.storage.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune by age failed: %w", err)
	}

	if deleted > 0 {
		p.logger.Info("pruned events by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
			"cutoff_time", cutoff,
		)
	} else {
		p.logger.Debug("no events pruned",
			"retention_days", p.config.RetentionDays,
		)
	}

	return deleted, nil
}

// Start schedules pruning on the configured cron expression. An empty
// schedule is a no-op. The schedule stops when ctx is cancelled or Stop is
// called.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.PruneSchedule == "" {
		p.logger.Info("prune schedule not configured, scheduled pruning disabled")
		return nil
	}
	if p.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(p.config.PruneSchedule, func() { p.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.config.PruneSchedule, err)
	}
	c.Start()

	p.cron = c
	p.running = true
	p.logger.Info("scheduled pruning started",
		"schedule", p.config.PruneSchedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

func (p *Pruner) runScheduled(ctx context.Context) {
	if _, err := p.Prune(ctx); err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop cancels scheduled pruning and waits for a running cycle to finish.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	<-p.cron.Stop().Done()
	p.running = false
	p.logger.Info("scheduled pruning stopped")
}

// NextPruning returns the time of the next scheduled pruning, or nil when
// scheduled pruning is not running.
func (p *Pruner) NextPruning() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
