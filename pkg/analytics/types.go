package analytics

import "time"

// EventType classifies a fallback event.
type EventType string

const (
	// EventFailover records a failover away from a provider.
	EventFailover EventType = "failover"

	// EventRecovery records a promotion back toward a higher-priority
	// provider.
	EventRecovery EventType = "recovery"

	// EventHealthCheck records a health status transition observed by the
	// health monitor.
	EventHealthCheck EventType = "health_check"
)

// Event is an append-only fallback event. Events are never mutated after
// creation except to set Resolved when a matching recovery arrives.
type Event struct {
	// ID is a UUID assigned at record time.
	ID string `json:"id"`

	// ChainID is the chain the event belongs to.
	ChainID string `json:"chain_id"`

	// Type is the event type.
	Type EventType `json:"type"`

	// Provider is the provider the event concerns. For failover events it
	// is the provider traffic moved away from; for recovery events it is
	// the provider traffic moved back to.
	Provider string `json:"provider"`

	// Target is the provider traffic moved to, for failover events.
	Target string `json:"target,omitempty"`

	// Reason is the classified cause (timeout, rate_limited, network_error,
	// provider_error, unhealthy) or the health transition description.
	Reason string `json:"reason,omitempty"`

	// Duration is event-type specific: for recovery events it is the time
	// spent on fallback since the matching failover.
	Duration time.Duration `json:"duration,omitempty"`

	// Impact is a human-readable impact description.
	Impact string `json:"impact,omitempty"`

	// Resolved marks a failover event whose matching recovery has been
	// observed.
	Resolved bool `json:"resolved"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// ImpactMetrics aggregates the observable impact of failovers on traffic.
type ImpactMetrics struct {
	// RequestsAffected counts requests that failed or crossed a failover.
	RequestsAffected int64 `json:"requests_affected"`

	// DowntimeAvoided is the cumulative time traffic was served by a
	// fallback provider while a higher-priority provider was down.
	DowntimeAvoided time.Duration `json:"downtime_avoided"`

	// CostImpact is populated by the external cost tracker when it
	// enriches snapshots; the engine itself leaves it zero.
	CostImpact float64 `json:"cost_impact"`

	// UserImpact is a coarse severity classification derived from
	// RequestsAffected.
	UserImpact string `json:"user_impact"`
}

// Analytics is the per-chain aggregate view, recomputed incrementally from
// the event stream and request outcomes. Derived, not independently
// authoritative.
type Analytics struct {
	// ChainID identifies the chain.
	ChainID string `json:"chain_id"`

	// TotalFailovers is the count of failover events.
	TotalFailovers int64 `json:"total_failovers"`

	// FailoversByProvider maps the provider failed away from to a count.
	FailoversByProvider map[string]int64 `json:"failovers_by_provider"`

	// TotalRecoveries is the count of recovery events.
	TotalRecoveries int64 `json:"total_recoveries"`

	// AverageRecoveryTime is the mean time between a failover event and
	// its matching recovery event (matched by chain + provider, FIFO).
	AverageRecoveryTime time.Duration `json:"average_recovery_time"`

	// SuccessRate is the fraction of requests that completed successfully.
	SuccessRate float64 `json:"success_rate"`

	// TotalRequests is the number of requests observed for this chain.
	TotalRequests int64 `json:"total_requests"`

	// Impact aggregates traffic impact.
	Impact ImpactMetrics `json:"impact"`
}

// userImpact classifies request impact into a coarse severity.
func userImpact(requestsAffected int64) string {
	switch {
	case requestsAffected == 0:
		return "none"
	case requestsAffected < 100:
		return "minimal"
	case requestsAffected < 10000:
		return "moderate"
	default:
		return "severe"
	}
}
