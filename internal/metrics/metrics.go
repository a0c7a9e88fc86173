package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InstancesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurrence_instances_generated_total",
			Help: "Total number of task instances generated from recurring templates",
		},
	)

	SeriesEnded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurrence_series_ended_total",
			Help: "Total number of templates that reached their end date",
		},
	)

	TemplateErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recurrence_template_errors_total",
			Help: "Per-template generation failures",
		},
		[]string{"kind"},
	)

	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recurrence_pass_duration_seconds",
			Help:    "Duration of generation passes in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"outcome"}, // outcome: ok, partial, failed
	)

	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurrence_pass_lock_contention_total",
			Help: "Generation passes skipped because another pass held the lock",
		},
	)
)

func RecordInstanceGenerated(endedSeries bool) {
	InstancesGenerated.Inc()
	if endedSeries {
		SeriesEnded.Inc()
	}
}

func RecordTemplateError(kind string) {
	TemplateErrors.WithLabelValues(kind).Inc()
}

func RecordPass(outcome string, duration time.Duration) {
	PassDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordLockContention() {
	LockContention.Inc()
}
