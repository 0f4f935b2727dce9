package database

import "time"

// Transaction outcomes reported to Metrics.RecordTransaction.
const (
	TxCommitted  = "committed"
	TxRolledBack = "rolled_back"
	TxRejected   = "rejected"
)

// Metrics receives store instrumentation. Implementations live in
// pkg/metrics/prometheus; a nil Metrics disables collection.
type Metrics interface {
	// ObserveOperation records one store operation and its outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordTransaction counts a transaction by outcome.
	RecordTransaction(outcome string)

	// SetReady reports whether the store holds an open handle.
	SetReady(ready bool)

	// SetPoolStats reports connection pool usage.
	SetPoolStats(open, inUse, idle int)
}
