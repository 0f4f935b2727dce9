package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/fieldstore/pkg/lifecycle"
	"github.com/marmos91/fieldstore/pkg/metrics"
)

// lifecycleMetrics is the Prometheus implementation of lifecycle.Metrics.
type lifecycleMetrics struct {
	steps      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	registered prometheus.Gauge
}

// NewLifecycleMetrics creates a Prometheus-backed lifecycle.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewLifecycleMetrics() lifecycle.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newLifecycleMetrics(metrics.GetRegistry())
}

func newLifecycleMetrics(reg prometheus.Registerer) *lifecycleMetrics {
	return &lifecycleMetrics{
		steps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "component",
				Name:      "lifecycle_total",
				Help:      "Component initialize/destroy calls by component, step and status",
			},
			[]string{"component", "step", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "component",
				Name:      "lifecycle_duration_milliseconds",
				Help:      "Duration of component initialize/destroy in milliseconds",
				Buckets:   latencyBuckets,
			},
			[]string{"component", "step"},
		),
		registered: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "component",
				Name:      "registered",
				Help:      "Number of components in the registry",
			},
		),
	}
}

func (m *lifecycleMetrics) observe(component, step string, d time.Duration, err error) {
	m.steps.WithLabelValues(component, step, outcome(err)).Inc()
	m.duration.WithLabelValues(component, step).Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *lifecycleMetrics) ObserveInitialize(component string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.observe(component, "initialize", d, err)
}

func (m *lifecycleMetrics) ObserveDestroy(component string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.observe(component, "destroy", d, err)
}

func (m *lifecycleMetrics) SetRegistered(n int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(n))
}
