package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	Stages        *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Generations   *prometheus.CounterVec
	Outcomes      *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Stages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_pipeline_stages_total",
			Help: "Pipeline stages run by stage and status",
		}, []string{"stage", "status"}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "advisor_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),

		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_generation_calls_total",
			Help: "Text generation calls by purpose and result",
		}, []string{"purpose", "result"}), // result: ok, empty, error

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_pipeline_runs_total",
			Help: "Completed pipeline runs by terminal stage",
		}, []string{"stage"}),
	}
}
