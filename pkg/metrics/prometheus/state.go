package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/fieldstore/pkg/metrics"
	"github.com/marmos91/fieldstore/pkg/state"
)

// stateMetrics is the Prometheus implementation of state.Metrics for the
// badger-backed components.
type stateMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	keys       *prometheus.GaugeVec
}

// NewStateMetrics creates a Prometheus-backed state.Metrics shared by all
// state components.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStateMetrics() state.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newStateMetrics(metrics.GetRegistry())
}

func newStateMetrics(reg prometheus.Registerer) *stateMetrics {
	return &stateMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "state",
				Name:      "operations_total",
				Help:      "Total number of state store operations by store, operation and status",
			},
			[]string{"store", "operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "state",
				Name:      "operation_duration_milliseconds",
				Help:      "Duration of state store operations in milliseconds",
				Buckets:   latencyBuckets,
			},
			[]string{"store", "operation"},
		),
		keys: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "state",
				Name:      "keys",
				Help:      "Number of keys per state store at the last full listing",
			},
			[]string{"store"}, // "global", "theme", "user"
		),
	}
}

func (m *stateMetrics) ObserveOperation(store, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(store, operation, outcome(err)).Inc()
	m.duration.WithLabelValues(store, operation).Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *stateMetrics) SetKeys(store string, n int) {
	if m == nil {
		return
	}
	m.keys.WithLabelValues(store).Set(float64(n))
}
