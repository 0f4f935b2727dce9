// Package prometheus provides the Prometheus implementations of the
// Metrics interfaces declared by the database, lifecycle, state and
// archive packages.
package prometheus

import (
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
	"github.com/marmos91/fieldstore/pkg/metrics"
)

// outcome labels a result: "ok", the error kind name for classified
// errors, or "error".
func outcome(err error) string {
	if err == nil {
		return metrics.Status(nil)
	}
	if kind := dberrors.KindOf(err); kind != 0 {
		return kind.String()
	}
	return metrics.Status(err)
}

// latencyBuckets covers sub-millisecond reads up to multi-second VACUUM runs.
var latencyBuckets = []float64{
	0.5, // 0.5ms - cached point reads
	1,
	5,
	10, // 10ms - small transactions
	50,
	100,
	500, // 500ms - pagination over large tables
	1000,
	5000, // 5s - optimize, backups
	30000,
}
