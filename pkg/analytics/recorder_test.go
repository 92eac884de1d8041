package analytics

import (
	"testing"
	"time"
)

func TestRecorder_EventsNewestFirst(t *testing.T) {
	r := NewRecorder(nil)

	r.Record(&Event{ChainID: "chat", Type: EventFailover, Provider: "a", Target: "b"})
	r.Record(&Event{ChainID: "chat", Type: EventFailover, Provider: "b", Target: "c"})
	r.Record(&Event{ChainID: "chat", Type: EventRecovery, Provider: "b"})

	events := r.Events("chat", 0)
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].Type != EventRecovery {
		t.Errorf("Expected newest event first, got %s", events[0].Type)
	}

	limited := r.Events("chat", 2)
	if len(limited) != 2 {
		t.Errorf("Expected limit to apply, got %d events", len(limited))
	}
	if r.Events("unknown", 0) != nil {
		t.Error("Expected nil for an unknown chain")
	}
}

func TestRecorder_RingEviction(t *testing.T) {
	r := NewRecorder(&Config{EventLogSize: 3})

	for i := 0; i < 5; i++ {
		r.Record(&Event{ChainID: "chat", Type: EventFailover, Provider: "a"})
	}

	events := r.Events("chat", 0)
	if len(events) != 3 {
		t.Errorf("Expected ring capped at 3, got %d", len(events))
	}

	// Aggregates survive eviction.
	snap := r.Snapshot("chat")
	if snap.TotalFailovers != 5 {
		t.Errorf("Expected 5 total failovers despite eviction, got %d", snap.TotalFailovers)
	}
}

func TestRecorder_RecoveryMatchingFIFO(t *testing.T) {
	r := NewRecorder(nil)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.SetClock(func() time.Time { return current })

	// Two failovers away from the same provider, recovered 2 and 4 minutes
	// later. FIFO matching pairs the first recovery with the first failover.
	r.Record(&Event{ChainID: "chat", Type: EventFailover, Provider: "primary", Target: "secondary"})
	current = current.Add(time.Minute)
	r.Record(&Event{ChainID: "chat", Type: EventFailover, Provider: "primary", Target: "secondary"})

	current = current.Add(time.Minute)
	r.Record(&Event{ChainID: "chat", Type: EventRecovery, Provider: "primary"})
	current = current.Add(2 * time.Minute)
	r.Record(&Event{ChainID: "chat", Type: EventRecovery, Provider: "primary"})

	snap := r.Snapshot("chat")
	if snap.TotalFailovers != 2 || snap.TotalRecoveries != 2 {
		t.Fatalf("Expected 2 failovers and 2 recoveries, got %d/%d", snap.TotalFailovers, snap.TotalRecoveries)
	}
	// First pair: 2m, second pair: 3m.
	if want := 150 * time.Second; snap.AverageRecoveryTime != want {
		t.Errorf("Expected %v average recovery time, got %v", want, snap.AverageRecoveryTime)
	}
	if snap.Impact.DowntimeAvoided != 5*time.Minute {
		t.Errorf("Expected 5m downtime avoided, got %v", snap.Impact.DowntimeAvoided)
	}

	// Both failover events are marked resolved.
	for _, e := range r.Events("chat", 0) {
		if e.Type == EventFailover && !e.Resolved {
			t.Errorf("Expected failover event resolved, got %+v", e)
		}
	}
}

func TestRecorder_RecoveryWithoutFailoverIsUnmatched(t *testing.T) {
	r := NewRecorder(nil)

	r.Record(&Event{ChainID: "chat", Type: EventRecovery, Provider: "primary"})

	snap := r.Snapshot("chat")
	if snap.TotalRecoveries != 1 {
		t.Errorf("Expected the recovery counted, got %d", snap.TotalRecoveries)
	}
	if snap.AverageRecoveryTime != 0 {
		t.Errorf("Expected no average without a matched pair, got %v", snap.AverageRecoveryTime)
	}
}

func TestRecorder_RequestOutcomes(t *testing.T) {
	r := NewRecorder(nil)

	for i := 0; i < 8; i++ {
		r.RecordRequest("chat", true)
	}
	r.RecordRequest("chat", false)
	r.RecordRequest("chat", false)

	snap := r.Snapshot("chat")
	if snap.TotalRequests != 10 {
		t.Errorf("Expected 10 requests, got %d", snap.TotalRequests)
	}
	if snap.SuccessRate != 0.8 {
		t.Errorf("Expected 0.8 success rate, got %f", snap.SuccessRate)
	}
	if snap.Impact.RequestsAffected != 2 {
		t.Errorf("Expected 2 affected requests, got %d", snap.Impact.RequestsAffected)
	}
	if snap.Impact.UserImpact != "minimal" {
		t.Errorf("Expected minimal user impact, got %q", snap.Impact.UserImpact)
	}
}

func TestRecorder_SnapshotUnknownChain(t *testing.T) {
	r := NewRecorder(nil)

	snap := r.Snapshot("nope")
	if snap.ChainID != "nope" {
		t.Errorf("Expected chain id echoed, got %q", snap.ChainID)
	}
	if snap.Impact.UserImpact != "none" {
		t.Errorf("Expected none impact, got %q", snap.Impact.UserImpact)
	}
}

func TestRecorder_FillsIDAndTimestamp(t *testing.T) {
	r := NewRecorder(nil)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.SetClock(func() time.Time { return current })

	r.Record(&Event{ChainID: "chat", Type: EventFailover, Provider: "a"})

	events := r.Events("chat", 1)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Error("Expected an assigned event ID")
	}
	if !events[0].Timestamp.Equal(current) {
		t.Errorf("Expected timestamp from the recorder clock, got %v", events[0].Timestamp)
	}
}

func TestUserImpact(t *testing.T) {
	tests := []struct {
		affected int64
		want     string
	}{
		{0, "none"},
		{1, "minimal"},
		{99, "minimal"},
		{100, "moderate"},
		{9999, "moderate"},
		{10000, "severe"},
	}
	for _, tt := range tests {
		if got := userImpact(tt.affected); got != tt.want {
			t.Errorf("userImpact(%d) = %q, want %q", tt.affected, got, tt.want)
		}
	}
}
