package failover

import (
	"testing"
	"time"
)

func TestWindow_EmptySuccessRate(t *testing.T) {
	w := NewWindow(8)

	if rate := w.SuccessRate(); rate != 1.0 {
		t.Errorf("Expected success rate 1.0 for empty window, got %f", rate)
	}
	if n := w.Len(); n != 0 {
		t.Errorf("Expected 0 outcomes, got %d", n)
	}
}

func TestWindow_RecordAndAggregates(t *testing.T) {
	w := NewWindow(8)

	w.Record(true, 100*time.Millisecond)
	w.Record(true, 200*time.Millisecond)
	w.Record(false, 300*time.Millisecond)
	w.Record(false, 400*time.Millisecond)

	if rate := w.SuccessRate(); rate != 0.5 {
		t.Errorf("Expected success rate 0.5, got %f", rate)
	}
	if n := w.ConsecutiveFailures(); n != 2 {
		t.Errorf("Expected 2 consecutive failures, got %d", n)
	}

	stats := w.Stats(0)
	if stats.Samples != 4 {
		t.Errorf("Expected 4 samples, got %d", stats.Samples)
	}
	if stats.Failures != 2 {
		t.Errorf("Expected 2 failures, got %d", stats.Failures)
	}
	if stats.ErrorRate != 0.5 {
		t.Errorf("Expected error rate 0.5, got %f", stats.ErrorRate)
	}
	if stats.AverageLatency != 250*time.Millisecond {
		t.Errorf("Expected average latency 250ms, got %v", stats.AverageLatency)
	}
}

func TestWindow_ConsecutiveFailuresResetOnSuccess(t *testing.T) {
	w := NewWindow(8)

	w.Record(false, 0)
	w.Record(false, 0)
	w.Record(true, 0)

	if n := w.ConsecutiveFailures(); n != 0 {
		t.Errorf("Expected failure run reset by success, got %d", n)
	}
}

func TestWindow_EvictionMaintainsSums(t *testing.T) {
	w := NewWindow(3)

	// Fill with failures, then push them out with successes.
	w.Record(false, 100*time.Millisecond)
	w.Record(false, 100*time.Millisecond)
	w.Record(false, 100*time.Millisecond)
	w.Record(true, 10*time.Millisecond)
	w.Record(true, 10*time.Millisecond)
	w.Record(true, 10*time.Millisecond)

	if rate := w.SuccessRate(); rate != 1.0 {
		t.Errorf("Expected success rate 1.0 after eviction, got %f", rate)
	}
	stats := w.Stats(0)
	if stats.Failures != 0 {
		t.Errorf("Expected 0 failures after eviction, got %d", stats.Failures)
	}
	if stats.AverageLatency != 10*time.Millisecond {
		t.Errorf("Expected average latency 10ms after eviction, got %v", stats.AverageLatency)
	}
}

func TestWindow_TimeSlicedStats(t *testing.T) {
	w := NewWindow(8)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return current }

	w.Record(false, 100*time.Millisecond)
	current = current.Add(10 * time.Minute)
	w.Record(true, 50*time.Millisecond)
	w.Record(true, 50*time.Millisecond)

	// A 1 minute slice only covers the two recent successes.
	stats := w.Stats(time.Minute)
	if stats.Samples != 2 {
		t.Errorf("Expected 2 samples in slice, got %d", stats.Samples)
	}
	if stats.Failures != 0 {
		t.Errorf("Expected 0 failures in slice, got %d", stats.Failures)
	}

	// A slice covering everything sees the old failure too.
	stats = w.Stats(time.Hour)
	if stats.Samples != 3 {
		t.Errorf("Expected 3 samples in full slice, got %d", stats.Samples)
	}
	if stats.Failures != 1 {
		t.Errorf("Expected 1 failure in full slice, got %d", stats.Failures)
	}
}

func TestWindow_CloneIsIndependent(t *testing.T) {
	w := NewWindow(4)
	w.Record(false, 100*time.Millisecond)

	c := w.Clone()
	c.Record(false, 100*time.Millisecond)

	if n := w.ConsecutiveFailures(); n != 1 {
		t.Errorf("Expected original window untouched by clone writes, got %d failures", n)
	}
	if n := c.ConsecutiveFailures(); n != 2 {
		t.Errorf("Expected clone to see 2 failures, got %d", n)
	}
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(4)
	w.Record(false, 100*time.Millisecond)
	w.Reset()

	if n := w.Len(); n != 0 {
		t.Errorf("Expected empty window after reset, got %d", n)
	}
	if rate := w.SuccessRate(); rate != 1.0 {
		t.Errorf("Expected success rate 1.0 after reset, got %f", rate)
	}
}
