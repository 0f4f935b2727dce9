package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/fieldstore/pkg/archive"
	"github.com/marmos91/fieldstore/pkg/metrics"
)

// archiveMetrics is the Prometheus implementation of archive.Metrics.
type archiveMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
}

// NewArchiveMetrics creates a Prometheus-backed archive.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewArchiveMetrics() archive.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newArchiveMetrics(metrics.GetRegistry())
}

func newArchiveMetrics(reg prometheus.Registerer) *archiveMetrics {
	return &archiveMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "s3",
				Name:      "operations_total",
				Help:      "Total number of S3 operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "s3",
				Name:      "operation_duration_milliseconds",
				Help:      "Duration of S3 operations in milliseconds",
				Buckets: []float64{
					10,    // 10ms - bucket checks
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s - small backups
					5000,  // 5s
					10000, // 10s
					30000, // 30s - large backups
				},
			},
			[]string{"operation"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "s3",
				Name:      "bytes_transferred_total",
				Help:      "Total bytes transferred via S3 operations",
			},
			[]string{"operation"},
		),
	}
}

func (m *archiveMetrics) ObserveOperation(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(float64(d.Milliseconds()))
}

func (m *archiveMetrics) RecordBytes(operation string, n int64) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues(operation).Add(float64(n))
}
