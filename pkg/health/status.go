package health

// ProbeStatus is the hysteresis-smoothed probe state of a provider.
type ProbeStatus int

const (
	// StatusUnknown means no probe has completed yet.
	StatusUnknown ProbeStatus = iota

	// StatusHealthy means the healthy-threshold run of consecutive probe
	// successes has been reached.
	StatusHealthy

	// StatusDegraded means recent probes are mixed: some failures, but
	// fewer consecutive ones than the unhealthy threshold.
	StatusDegraded

	// StatusUnhealthy means the unhealthy-threshold run of consecutive
	// probe failures has been reached.
	StatusUnhealthy
)

// String returns the status name used in events and API responses.
func (s ProbeStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// statusWeight maps a probe status to its contribution in the composite
// health score. Unknown sits between healthy and degraded: absence of
// evidence is not treated as failure.
func statusWeight(s ProbeStatus) float64 {
	switch s {
	case StatusHealthy:
		return 1.0
	case StatusUnknown:
		return 0.7
	case StatusDegraded:
		return 0.4
	default:
		return 0.0
	}
}
