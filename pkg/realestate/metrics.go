package realestate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the adapter's Prometheus collectors.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	CacheLookups *prometheus.CounterVec
	Degraded     *prometheus.CounterVec
}

// NewMetrics creates the adapter collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_upstream_requests_total",
			Help: "Upstream data provider HTTP attempts by operation and outcome",
		}, []string{"operation", "outcome"}), // outcome: ok, transient, client_error

		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "advisor_upstream_request_duration_seconds",
			Help:    "Upstream data provider attempt latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"operation"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_cache_lookups_total",
			Help: "Adapter cache lookups by operation and result",
		}, []string{"operation", "result"}), // result: hit, miss

		Degraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_degraded_results_total",
			Help: "Neutral default results returned after a narrow-input rejection or an empty response",
		}, []string{"operation"}),
	}
}
