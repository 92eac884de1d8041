package failover

import (
	"sync"
	"time"
)

// Outcome is a single recorded call attempt against a provider.
type Outcome struct {
	Success bool
	Latency time.Duration
	At      time.Time
}

// Stats is an aggregate view over a slice of a rolling window.
type Stats struct {
	// Samples is the number of outcomes inside the evaluated window.
	Samples int

	// Failures is the number of failed outcomes inside the window.
	Failures int

	// ErrorRate is Failures/Samples, 0 when Samples is 0.
	ErrorRate float64

	// AverageLatency is the mean attempt latency inside the window.
	AverageLatency time.Duration
}

// Window is a fixed-capacity ring buffer of recent call outcomes with
// maintained running sums. Insertion is O(1); whole-buffer aggregates
// (SuccessRate, ConsecutiveFailures) are O(1) via the running sums, and
// time-sliced aggregates (Stats) are O(capacity) worst case.
//
// Window is thread-safe.
type Window struct {
	mu sync.Mutex

	buf   []Outcome
	start int // index of the oldest entry
	count int

	failures   int
	latencySum time.Duration
	consecFail int

	now func() time.Time
}

// NewWindow creates a rolling window with the given capacity.
// A capacity below 1 is treated as 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		buf: make([]Outcome, capacity),
		now: time.Now,
	}
}

// Record appends an outcome, evicting the oldest entry when full.
func (w *Window) Record(success bool, latency time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recordLocked(Outcome{Success: success, Latency: latency, At: w.now()})
}

func (w *Window) recordLocked(o Outcome) {
	if w.count == len(w.buf) {
		old := w.buf[w.start]
		if !old.Success {
			w.failures--
		}
		w.latencySum -= old.Latency
		w.start = (w.start + 1) % len(w.buf)
		w.count--
	}

	w.buf[(w.start+w.count)%len(w.buf)] = o
	w.count++

	if o.Success {
		w.consecFail = 0
	} else {
		w.failures++
		w.consecFail++
	}
	w.latencySum += o.Latency
}

// Stats returns aggregates over the outcomes recorded within the trailing
// window duration. A non-positive duration covers the whole buffer.
func (w *Window) Stats(window time.Duration) Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	if window <= 0 {
		return w.fullStatsLocked()
	}

	cutoff := w.now().Add(-window)
	var s Stats
	var latencySum time.Duration
	for i := 0; i < w.count; i++ {
		o := w.buf[(w.start+i)%len(w.buf)]
		if o.At.Before(cutoff) {
			continue
		}
		s.Samples++
		if !o.Success {
			s.Failures++
		}
		latencySum += o.Latency
	}
	if s.Samples > 0 {
		s.ErrorRate = float64(s.Failures) / float64(s.Samples)
		s.AverageLatency = latencySum / time.Duration(s.Samples)
	}
	return s
}

func (w *Window) fullStatsLocked() Stats {
	s := Stats{Samples: w.count, Failures: w.failures}
	if w.count > 0 {
		s.ErrorRate = float64(w.failures) / float64(w.count)
		s.AverageLatency = w.latencySum / time.Duration(w.count)
	}
	return s
}

// SuccessRate returns the success fraction over the whole buffer,
// or 1.0 when the buffer is empty.
func (w *Window) SuccessRate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count == 0 {
		return 1.0
	}
	return float64(w.count-w.failures) / float64(w.count)
}

// ConsecutiveFailures returns the length of the trailing failure run.
func (w *Window) ConsecutiveFailures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.consecFail
}

// Len returns the number of recorded outcomes.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Reset clears the window.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.start = 0
	w.count = 0
	w.failures = 0
	w.latencySum = 0
	w.consecFail = 0
}

// Clone returns a deep copy of the window. Used to sandbox synthetic chain
// tests away from live runtime state.
func (w *Window) Clone() *Window {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := &Window{
		buf:        make([]Outcome, len(w.buf)),
		start:      w.start,
		count:      w.count,
		failures:   w.failures,
		latencySum: w.latencySum,
		consecFail: w.consecFail,
		now:        w.now,
	}
	copy(c.buf, w.buf)
	return c
}
