// Package prometheus implements the harness metrics interfaces on top of
// the global Prometheus registry.
package prometheus

import (
	"time"

	"github.com/marmos91/paramount/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// runMetrics is the Prometheus implementation of metrics.RunMetrics.
type runMetrics struct {
	workers       prometheus.Gauge
	mountDuration *prometheus.HistogramVec
	mountFailures prometheus.Counter
	runDuration   prometheus.Histogram
}

// NewRunMetrics creates a Prometheus-backed RunMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRunMetrics() metrics.RunMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &runMetrics{
		workers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "paramount_workers",
				Help: "Requested mount concurrency for the run",
			},
		),
		mountDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "paramount_mount_duration_seconds",
				Help: "Duration of individual mount invocations",
				Buckets: []float64{
					0.01, // fast local mounts
					0.05,
					0.1,
					0.25,
					0.5,
					1,
					2.5,
					5,
					10, // mountd under heavy burst load
					30,
				},
			},
			[]string{"result"}, // "success", "failure"
		),
		mountFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "paramount_mount_failures_total",
				Help: "Total number of mount invocations that exited non-zero",
			},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "paramount_run_duration_seconds",
				Help:    "Wall-clock duration of the provision-mount-verify sequence",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
	}
}

// SetWorkers implements metrics.RunMetrics.
func (m *runMetrics) SetWorkers(n int) {
	m.workers.Set(float64(n))
}

// ObserveMount implements metrics.RunMetrics.
func (m *runMetrics) ObserveMount(duration time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
		m.mountFailures.Inc()
	}
	m.mountDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveRun implements metrics.RunMetrics.
func (m *runMetrics) ObserveRun(duration time.Duration) {
	m.runDuration.Observe(duration.Seconds())
}
