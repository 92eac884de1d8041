package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config contains configuration for the analytics recorder.
type Config struct {
	// EventLogSize is the per-chain in-memory event ring capacity.
	// Default: 512
	EventLogSize int

	// AsyncBuffer is the size of the async store write channel.
	// Default: 1024
	AsyncBuffer int

	// AlertLogSize is the alert ring capacity.
	// Default: 256
	AlertLogSize int

	// Store is the optional durable event store. Nil keeps events in
	// memory only.
	Store Storage
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		EventLogSize: 512,
		AsyncBuffer:  1024,
		AlertLogSize: 256,
	}
}

// chainLog holds one chain's bounded event ring and incrementally maintained
// aggregates. Aggregates are updated on each append rather than recomputed
// from the log, so snapshots are O(1).
type chainLog struct {
	events []*Event
	start  int
	count  int

	agg Analytics

	// pendingFailovers maps a demoted provider to the FIFO queue of its
	// unresolved failover events, for recovery-time matching.
	pendingFailovers map[string][]*Event

	recoveredCount int64
	recoverySum    time.Duration

	totalRequests  int64
	failedRequests int64
}

// Recorder appends failover, recovery, and health-check events to bounded
// per-chain logs and maintains aggregate counters for O(1) snapshots.
// Durable writes happen on a background worker so recording never blocks
// request traffic.
type Recorder struct {
	mu     sync.RWMutex
	chains map[string]*chainLog
	alerts *AlertLog
	config *Config

	writeCh chan *Event
	done    chan struct{}
	wg      sync.WaitGroup

	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates an analytics recorder. If config is nil the defaults
// are used.
func NewRecorder(config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.EventLogSize <= 0 {
		config.EventLogSize = 512
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1024
	}
	if config.AlertLogSize <= 0 {
		config.AlertLogSize = 256
	}

	r := &Recorder{
		chains:  make(map[string]*chainLog),
		alerts:  NewAlertLog(config.AlertLogSize),
		config:  config,
		writeCh: make(chan *Event, config.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "analytics.recorder"),
		now:     time.Now,
	}

	if config.Store != nil {
		r.wg.Add(1)
		go r.worker()
	}

	return r
}

// SetClock overrides the recorder's time source. Intended for tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Record appends an event to the chain's log and updates the aggregates.
// Missing ID and Timestamp fields are filled in. The durable write is
// enqueued; a full queue drops the durable copy, never the in-memory one.
func (r *Recorder) Record(event *Event) {
	r.mu.Lock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}

	cl := r.chainLocked(event.ChainID)
	cl.append(event)

	switch event.Type {
	case EventFailover:
		cl.agg.TotalFailovers++
		cl.agg.FailoversByProvider[event.Provider]++
		cl.agg.Impact.RequestsAffected++
		cl.pendingFailovers[event.Provider] = append(cl.pendingFailovers[event.Provider], event)

	case EventRecovery:
		cl.agg.TotalRecoveries++
		if pending := cl.pendingFailovers[event.Provider]; len(pending) > 0 {
			match := pending[0]
			cl.pendingFailovers[event.Provider] = pending[1:]
			match.Resolved = true

			elapsed := event.Timestamp.Sub(match.Timestamp)
			if event.Duration == 0 {
				event.Duration = elapsed
			}
			cl.recoveredCount++
			cl.recoverySum += elapsed
			cl.agg.AverageRecoveryTime = cl.recoverySum / time.Duration(cl.recoveredCount)
			cl.agg.Impact.DowntimeAvoided += elapsed
		}
	}
	cl.agg.Impact.UserImpact = userImpact(cl.agg.Impact.RequestsAffected)

	r.mu.Unlock()

	if r.config.Store != nil {
		select {
		case r.writeCh <- event:
		default:
			r.logger.Warn("event store queue full, dropping durable copy",
				"event_id", event.ID,
				"chain_id", event.ChainID,
			)
		}
	}
}

// RecordRequest folds a request outcome into the chain's success rate and
// impact counters.
func (r *Recorder) RecordRequest(chainID string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cl := r.chainLocked(chainID)
	cl.totalRequests++
	if !success {
		cl.failedRequests++
		cl.agg.Impact.RequestsAffected++
		cl.agg.Impact.UserImpact = userImpact(cl.agg.Impact.RequestsAffected)
	}
	cl.agg.TotalRequests = cl.totalRequests
	cl.agg.SuccessRate = float64(cl.totalRequests-cl.failedRequests) / float64(cl.totalRequests)
}

// Events returns the chain's most recent events, newest first, up to limit.
// A non-positive limit returns the whole retained log.
func (r *Recorder) Events(chainID string, limit int) []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cl, ok := r.chains[chainID]
	if !ok {
		return nil
	}
	if limit <= 0 || limit > cl.count {
		limit = cl.count
	}

	out := make([]*Event, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (cl.start + cl.count - 1 - i) % len(cl.events)
		copyEvent := *cl.events[idx]
		out = append(out, &copyEvent)
	}
	return out
}

// Snapshot returns the chain's aggregate analytics. The snapshot is a copy
// and will not be updated.
func (r *Recorder) Snapshot(chainID string) Analytics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cl, ok := r.chains[chainID]
	if !ok {
		return Analytics{
			ChainID:             chainID,
			FailoversByProvider: map[string]int64{},
			Impact:              ImpactMetrics{UserImpact: "none"},
		}
	}

	snap := cl.agg
	snap.FailoversByProvider = make(map[string]int64, len(cl.agg.FailoversByProvider))
	for k, v := range cl.agg.FailoversByProvider {
		snap.FailoversByProvider[k] = v
	}
	return snap
}

// Alerts returns the recorder's alert log.
func (r *Recorder) Alerts() *AlertLog {
	return r.alerts
}

// Close drains the durable write queue and stops the background worker.
func (r *Recorder) Close() error {
	if r.config.Store == nil {
		return nil
	}
	close(r.done)
	r.wg.Wait()
	return nil
}

func (r *Recorder) chainLocked(chainID string) *chainLog {
	cl, ok := r.chains[chainID]
	if !ok {
		cl = &chainLog{
			events:           make([]*Event, r.config.EventLogSize),
			pendingFailovers: make(map[string][]*Event),
			agg: Analytics{
				ChainID:             chainID,
				FailoversByProvider: map[string]int64{},
				Impact:              ImpactMetrics{UserImpact: "none"},
			},
		}
		r.chains[chainID] = cl
	}
	return cl
}

func (cl *chainLog) append(event *Event) {
	if cl.count == len(cl.events) {
		cl.events[cl.start] = nil
		cl.start = (cl.start + 1) % len(cl.events)
		cl.count--
	}
	cl.events[(cl.start+cl.count)%len(cl.events)] = event
	cl.count++
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.writeCh:
			r.persist(event)
		case <-r.done:
			// Drain remaining events before exiting.
			for {
				select {
				case event := <-r.writeCh:
					r.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.config.Store.Append(ctx, event); err != nil {
		r.logger.Error("failed to persist event",
			"event_id", event.ID,
			"chain_id", event.ChainID,
			"error", err,
		)
	}
}
