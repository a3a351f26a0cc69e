// Package metrics holds the Prometheus collectors for the verification
// service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every collector the service exports. Construct with New,
// then Register against the registry the /metrics handler serves.
type Metrics struct {
	VerificationsTotal *prometheus.CounterVec
	QuotaExceededTotal *prometheus.CounterVec
	BreakerOpenTotal   prometheus.Counter
	ProbeDuration      prometheus.Histogram
	FastpathDuration   prometheus.Histogram
	ActiveWorkers      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_results_total",
			Help: "Verification results by status and source",
		}, []string{"status", "source"}),
		QuotaExceededTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_quota_exceeded_total",
			Help: "Requests rejected by the quota enforcer, by scope",
		}, []string{"scope"}),
		BreakerOpenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verify_breaker_open_total",
			Help: "Requests short-circuited by an open domain breaker",
		}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verify_probe_duration_seconds",
			Help:    "Wall time of full SMTP probe sessions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		}),
		FastpathDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verify_fastpath_duration_seconds",
			Help:    "Wall time of fast-path verifier calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verify_active_workers",
			Help: "Workers currently processing addresses",
		}),
	}
}

func (m *Metrics) Register(registry prometheus.Registerer) {
	registry.MustRegister(
		m.VerificationsTotal,
		m.QuotaExceededTotal,
		m.BreakerOpenTotal,
		m.ProbeDuration,
		m.FastpathDuration,
		m.ActiveWorkers,
	)
}
