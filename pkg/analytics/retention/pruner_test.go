package retention

import (
	"context"
	"testing"
	"time"

	"github.com/Zeus-Eternal/kari-failover/pkg/analytics"
	"github.com/Zeus-Eternal/kari-failover/pkg/analytics/storage"
)

func TestPruner_Prune(t *testing.T) {
	s := storage.NewMemoryStore()
	ctx := context.Background()

	s.Append(ctx, &analytics.Event{
		ID:        "old",
		ChainID:   "chat",
		Type:      analytics.EventFailover,
		Timestamp: time.Now().AddDate(0, 0, -40),
	})
	s.Append(ctx, &analytics.Event{
		ID:        "recent",
		ChainID:   "chat",
		Type:      analytics.EventFailover,
		Timestamp: time.Now().Add(-time.Hour),
	})

	p := NewPruner(s, &Config{RetentionDays: 30})
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 event pruned, got %d", deleted)
	}

	events, _ := s.List(ctx, "chat", 0)
	if len(events) != 1 || events[0].ID != "recent" {
		t.Errorf("Expected only the recent event retained, got %+v", events)
	}
}

func TestPruner_ZeroRetentionIsNoop(t *testing.T) {
	s := storage.NewMemoryStore()
	ctx := context.Background()

	s.Append(ctx, &analytics.Event{
		ID:        "old",
		ChainID:   "chat",
		Timestamp: time.Now().AddDate(0, 0, -400),
	})

	p := NewPruner(s, &Config{RetentionDays: 0})
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected no pruning with zero retention, got %d", deleted)
	}

	events, _ := s.List(ctx, "chat", 0)
	if len(events) != 1 {
		t.Errorf("Expected events untouched, got %d", len(events))
	}
}

func TestPruner_StartRejectsInvalidSchedule(t *testing.T) {
	p := NewPruner(storage.NewMemoryStore(), &Config{
		RetentionDays: 30,
		PruneSchedule: "not a cron expression",
	})
	if err := p.Start(context.Background()); err == nil {
		t.Error("Expected error for an invalid schedule")
	}
	if next := p.NextPruning(); next != nil {
		t.Errorf("Expected no scheduled pruning, got %v", next)
	}
}

func TestPruner_StartEmptyScheduleIsNoop(t *testing.T) {
	p := NewPruner(storage.NewMemoryStore(), &Config{RetentionDays: 30})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if next := p.NextPruning(); next != nil {
		t.Errorf("Expected no scheduled pruning, got %v", next)
	}
}

func TestPruner_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPruner(storage.NewMemoryStore(), &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	})
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	next := p.NextPruning()
	if next == nil || !next.After(time.Now()) {
		t.Errorf("Expected a future pruning time, got %v", next)
	}

	p.Stop()
	if next := p.NextPruning(); next != nil {
		t.Errorf("Expected no scheduled pruning after Stop, got %v", next)
	}
	// Stop is idempotent.
	p.Stop()
}

func TestPruner_DefaultConfig(t *testing.T) {
	p := NewPruner(storage.NewMemoryStore(), nil)
	if p.config.RetentionDays != 30 {
		t.Errorf("Expected 30 day default retention, got %d", p.config.RetentionDays)
	}
	if p.config.PruneSchedule == "" {
		t.Error("Expected a default prune schedule")
	}
}
