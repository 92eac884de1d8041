package analytics

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a resource-monitoring alert raised by the engine, e.g. when a
// chain becomes exhausted or auto-recovery freezes. Alerts share the bounded
// event-log pattern and are mutated only to set the resolved fields.
type Alert struct {
	// ID is a UUID assigned when the alert is raised.
	ID string `json:"id"`

	// ChainID is the chain the alert concerns.
	ChainID string `json:"chain_id"`

	// Severity is "warning" or "critical".
	Severity string `json:"severity"`

	// Message describes the condition.
	Message string `json:"message"`

	// CreatedAt is when the alert was raised.
	CreatedAt time.Time `json:"created_at"`

	// Resolved marks an acknowledged alert.
	Resolved bool `json:"resolved"`

	// ResolvedAt is when the alert was resolved.
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// AlertLog is a bounded, oldest-evicted alert ring.
type AlertLog struct {
	mu     sync.RWMutex
	alerts []*Alert
	start  int
	count  int
	now    func() time.Time
}

// NewAlertLog creates an alert log with the given capacity.
func NewAlertLog(capacity int) *AlertLog {
	if capacity < 1 {
		capacity = 1
	}
	return &AlertLog{
		alerts: make([]*Alert, capacity),
		now:    time.Now,
	}
}

// Raise appends an alert and returns it.
func (l *AlertLog) Raise(chainID, severity, message string) *Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := &Alert{
		ID:        uuid.NewString(),
		ChainID:   chainID,
		Severity:  severity,
		Message:   message,
		CreatedAt: l.now(),
	}
	if l.count == len(l.alerts) {
		l.alerts[l.start] = nil
		l.start = (l.start + 1) % len(l.alerts)
		l.count--
	}
	l.alerts[(l.start+l.count)%len(l.alerts)] = a
	l.count++
	return a
}

// Resolve marks the alert with the given id resolved.
func (l *AlertLog) Resolve(alertID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 0; i < l.count; i++ {
		a := l.alerts[(l.start+i)%len(l.alerts)]
		if a.ID == alertID {
			if !a.Resolved {
				a.Resolved = true
				a.ResolvedAt = l.now()
			}
			return nil
		}
	}
	return fmt.Errorf("alert %q not found", alertID)
}

// List returns the retained alerts, newest first. unresolvedOnly filters out
// resolved alerts.
func (l *AlertLog) List(unresolvedOnly bool) []*Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Alert, 0, l.count)
	for i := l.count - 1; i >= 0; i-- {
		a := l.alerts[(l.start+i)%len(l.alerts)]
		if unresolvedOnly && a.Resolved {
			continue
		}
		copyAlert := *a
		out = append(out, &copyAlert)
	}
	return out
}
