package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/fieldstore/pkg/database"
	"github.com/marmos91/fieldstore/pkg/metrics"
)

// databaseMetrics is the Prometheus implementation of database.Metrics.
type databaseMetrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	transactions *prometheus.CounterVec
	ready        prometheus.Gauge
	connections  *prometheus.GaugeVec
}

// NewDatabaseMetrics creates a Prometheus-backed database.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDatabaseMetrics() database.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newDatabaseMetrics(metrics.GetRegistry())
}

func newDatabaseMetrics(reg prometheus.Registerer) *databaseMetrics {
	return &databaseMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "db",
				Name:      "operations_total",
				Help:      "Total number of store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "db",
				Name:      "operation_duration_milliseconds",
				Help:      "Duration of store operations in milliseconds",
				Buckets:   latencyBuckets,
			},
			[]string{"operation"},
		),
		transactions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "db",
				Name:      "transactions_total",
				Help:      "Total number of transactions by outcome",
			},
			[]string{"outcome"}, // "committed", "rolled_back", "rejected"
		),
		ready: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "db",
				Name:      "ready",
				Help:      "1 when the store holds an open database handle",
			},
		),
		connections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "db",
				Name:      "connections",
				Help:      "Connection pool usage by state",
			},
			[]string{"state"}, // "open", "in_use", "idle"
		),
	}
}

func (m *databaseMetrics) ObserveOperation(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *databaseMetrics) RecordTransaction(result string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(result).Inc()
}

func (m *databaseMetrics) SetReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ready.Set(1)
		return
	}
	m.ready.Set(0)
}

func (m *databaseMetrics) SetPoolStats(open, inUse, idle int) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues("open").Set(float64(open))
	m.connections.WithLabelValues("in_use").Set(float64(inUse))
	m.connections.WithLabelValues("idle").Set(float64(idle))
}
