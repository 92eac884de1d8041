// Package metrics exposes Prometheus metrics for the failover engine:
// request outcomes per chain and provider, failover and recovery counts,
// provider health gauges, and recovery durations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
)

// Collector registers and records all engine metrics against a single
// Prometheus registry. All recording methods are no-ops when metrics are
// disabled in configuration.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	failoversTotal  *prometheus.CounterVec
	recoveriesTotal *prometheus.CounterVec
	recoveryTime    *prometheus.HistogramVec

	chainStatus         *prometheus.GaugeVec
	providerHealth      *prometheus.GaugeVec
	providerHealthScore *prometheus.GaugeVec
	providerErrors      *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the specified configuration
// and Prometheus registry. If registry is nil a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "kari"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "failover"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of logical calls routed through fallback chains",
			},
			[]string{"chain", "provider", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of logical calls in seconds, including retries and failover hops",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"chain", "provider"},
		),

		failoversTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "failovers_total",
				Help:      "Total number of failover transitions by chain and demoted provider",
			},
			[]string{"chain", "from", "to", "reason"},
		),

		recoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recoveries_total",
				Help:      "Total number of recovery promotions by chain",
			},
			[]string{"chain", "provider"},
		),

		recoveryTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recovery_time_seconds",
				Help:      "Time from failover to matching recovery in seconds",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
			},
			[]string{"chain"},
		),

		chainStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "chain_status",
				Help:      "Chain status: 0=nominal, 1=degraded, 2=exhausted",
			},
			[]string{"chain"},
		),

		providerHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health",
				Help:      "Provider probe status: 1=healthy, 0=unhealthy",
			},
			[]string{"provider"},
		),

		providerHealthScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health_score",
				Help:      "Composite provider health score in [0,1]",
			},
			[]string{"provider"},
		),

		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total provider invocation errors by classified reason",
			},
			[]string{"provider", "reason"},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.failoversTotal,
		c.recoveriesTotal,
		c.recoveryTime,
		c.chainStatus,
		c.providerHealth,
		c.providerHealthScore,
		c.providerErrors,
	)

	return c
}

// RecordRequest records a completed logical call.
// Status is "success" or "error".
func (c *Collector) RecordRequest(chain, provider, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestsTotal.WithLabelValues(chain, provider, status).Inc()
	c.requestDuration.WithLabelValues(chain, provider).Observe(duration.Seconds())
}

// RecordFailover records a failover transition.
func (c *Collector) RecordFailover(chain, from, to, reason string) {
	if !c.config.Enabled {
		return
	}
	c.failoversTotal.WithLabelValues(chain, from, to, reason).Inc()
}

// RecordRecovery records a recovery promotion and the time spent failed over.
func (c *Collector) RecordRecovery(chain, provider string, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.recoveriesTotal.WithLabelValues(chain, provider).Inc()
	if elapsed > 0 {
		c.recoveryTime.WithLabelValues(chain).Observe(elapsed.Seconds())
	}
}

// UpdateChainStatus updates the chain status gauge.
// Status is 0=nominal, 1=degraded, 2=exhausted.
func (c *Collector) UpdateChainStatus(chain string, status int) {
	if !c.config.Enabled {
		return
	}
	c.chainStatus.WithLabelValues(chain).Set(float64(status))
}

// UpdateProviderHealth updates the provider health gauge.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	v := 0.0
	if healthy {
		v = 1.0
	}
	c.providerHealth.WithLabelValues(provider).Set(v)
}

// UpdateProviderHealthScore updates the composite health score gauge.
func (c *Collector) UpdateProviderHealthScore(provider string, score float64) {
	if !c.config.Enabled {
		return
	}
	c.providerHealthScore.WithLabelValues(provider).Set(score)
}

// RecordProviderError records a classified provider error.
func (c *Collector) RecordProviderError(provider, reason string) {
	if !c.config.Enabled {
		return
	}
	c.providerErrors.WithLabelValues(provider, reason).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
