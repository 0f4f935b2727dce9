package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on fieldstore spans.
const (
	AttrComponent  = "fieldstore.component"
	AttrOperation  = "fieldstore.operation"
	AttrDBSystem   = "db.system"
	AttrDBTable    = "db.sql.table"
	AttrDBRows     = "db.rows"
	AttrPage       = "db.page"
	AttrPageSize   = "db.page_size"
	AttrErrorKind  = "error.kind"
	AttrBucket     = "object.bucket"
	AttrObjectKey  = "object.key"
	AttrObjectSize = "object.size"
)

func Component(name string) attribute.KeyValue { return attribute.String(AttrComponent, name) }
func Operation(name string) attribute.KeyValue { return attribute.String(AttrOperation, name) }
func DBSystem(name string) attribute.KeyValue { return attribute.String(AttrDBSystem, name) }
func Table(name string) attribute.KeyValue { return attribute.String(AttrDBTable, name) }
func Rows(n int) attribute.KeyValue { return attribute.Int(AttrDBRows, n) }
func Page(n int) attribute.KeyValue { return attribute.Int(AttrPage, n) }
func PageSize(n int) attribute.KeyValue { return attribute.Int(AttrPageSize, n) }
func ErrorKind(kind string) attribute.KeyValue { return attribute.String(AttrErrorKind, kind) }
func Bucket(name string) attribute.KeyValue { return attribute.String(AttrBucket, name) }
func ObjectKey(key string) attribute.KeyValue { return attribute.String(AttrObjectKey, key) }
func ObjectSize(size int64) attribute.KeyValue { return attribute.Int64(AttrObjectSize, size) }

// StartComponentSpan starts a span for a lifecycle step of a registered
// component, named "component.<operation>".
func StartComponentSpan(ctx context.Context, operation, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Component(name), Operation(operation)}, attrs...)
	return StartSpan(ctx, "component."+operation, trace.WithAttributes(all...))
}

// StartStoreSpan starts a span for a store operation, named "store.<operation>".
func StartStoreSpan(ctx context.Context, operation, dbType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{DBSystem(dbType), Operation(operation)}, attrs...)
	return StartSpan(ctx, "store."+operation, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(all...))
}

// StartArchiveSpan starts a span for an object storage call.
func StartArchiveSpan(ctx context.Context, operation, bucket string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Bucket(bucket), Operation(operation)}, attrs...)
	return StartSpan(ctx, "archive."+operation, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(all...))
}
