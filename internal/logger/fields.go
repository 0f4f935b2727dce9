package logger

import "log/slog"

// Standard field keys. Use them consistently so log aggregation can query
// across components.
const (
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
	KeyRequestID = "request_id"

	KeyComponent  = "component"
	KeyComponents = "components"
	KeyOperation  = "operation"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorKind  = "error_kind"

	// Database
	KeyDatabaseType  = "db_type"
	KeyTable         = "table"
	KeyTables        = "tables_created"
	KeyIndexes       = "indexes_created"
	KeySchemaVersion = "schema_version"
	KeyMigration     = "migration"
	KeyRows          = "rows"
	KeyPage          = "page"
	KeyPageSize      = "page_size"
	KeyPath          = "path"

	// Object storage
	KeyBucket = "bucket"
	KeyKey    = "key"
	KeySize   = "size"
)

// Component returns a slog.Attr for a registered component name.
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation returns a slog.Attr for the operation being performed.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Table returns a slog.Attr for a table name.
func Table(name string) slog.Attr {
	return slog.String(KeyTable, name)
}

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Bucket returns a slog.Attr for an object storage bucket.
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for an object key.
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}
