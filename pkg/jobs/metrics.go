package jobs

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes worker pool counters to a Prometheus registry. Grounded
// on spec 4.6's stats() histogram-by-status requirement; client_golang is
// the teacher's own metrics stack choice for instrumenting background
// work (mirrored here rather than hand-rolling counters).
type Metrics struct {
	jobsProcessed *prometheus.CounterVec
}

// NewMetrics creates and registers the job scheduler's metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillrt",
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Total jobs processed by the worker pool, labeled by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.jobsProcessed)
	return m
}

// RecordJobOutcome increments the processed counter for a completed or
// failed job.
func (m *Metrics) RecordJobOutcome(success bool) {
	outcome := "failed"
	if success {
		outcome = "completed"
	}
	m.jobsProcessed.WithLabelValues(outcome).Inc()
}
