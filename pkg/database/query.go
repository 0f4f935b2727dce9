package database

import (
	"context"
	"reflect"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marmos91/fieldstore/internal/telemetry"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Op is a filter comparison operator.
type Op string

const (
	OpEq      Op = "eq"
	OpNe      Op = "ne"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpLike    Op = "like"
	OpIn      Op = "in"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
)

// ParseOp validates an operator name.
func ParseOp(s string) (Op, error) {
	op := Op(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn, OpIsNull, OpNotNull:
		return op, nil
	case "":
		return OpEq, nil
	}
	return "", invalidf("unknown filter operator %q", s)
}

// Filter restricts rows to those where Column compares to Value under Op.
type Filter struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value,omitempty"`
}

// Order sorts by Column.
type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// QueryParams selects rows from one table.
type QueryParams struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
	OrderBy []Order  `json:"order_by,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Offset  int      `json:"offset,omitempty"`
}

// Query returns the rows matching params. It observes committed data only,
// unless ctx carries one of the store's running transactions, in which case
// the read goes through that transaction.
func (s *Store) Query(ctx context.Context, params QueryParams) ([]Row, error) {
	if tx := s.activeTx(ctx); tx != nil {
		return s.query(tx.db, params)
	}

	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "query")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := telemetry.StartStoreSpan(ctx, "query", string(s.cfg.Type), telemetry.Table(params.Table))
	defer span.End()

	rows, err := s.query(db.WithContext(ctx), params)
	s.observe("query", start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	telemetry.SetAttributes(ctx, telemetry.Rows(len(rows)))
	return rows, nil
}

// Count returns the number of rows matching the table and filters of params.
func (s *Store) Count(ctx context.Context, params QueryParams) (int64, error) {
	if tx := s.activeTx(ctx); tx != nil {
		return s.count(tx.db, params)
	}

	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "count")
	if err != nil {
		return 0, err
	}

	start := time.Now()
	n, err := s.count(db, params)
	s.observe("count", start, err)
	return n, err
}

// query runs on db, which is either the store handle or a transaction.
// The caller holds the gate or runs inside a transaction holding it.
func (s *Store) query(db *gorm.DB, params QueryParams) ([]Row, error) {
	ts, err := s.validate(&params)
	if err != nil {
		return nil, err
	}
	if params.Limit < 0 || params.Offset < 0 {
		return nil, invalidf("limit and offset must not be negative")
	}

	q := s.filtered(db, ts, params.Filters)
	if len(params.Columns) > 0 {
		q = q.Select(params.Columns)
	}
	q = applyOrder(q, ts, params.OrderBy)
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}

	rows := []Row{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, translateError("query "+ts.name, err)
	}
	return rows, nil
}

func (s *Store) count(db *gorm.DB, params QueryParams) (int64, error) {
	ts, err := s.validate(&params)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.filtered(db, ts, params.Filters).Count(&n).Error; err != nil {
		return 0, translateError("count "+ts.name, err)
	}
	return n, nil
}

// validate checks table, column and operator names against the schema
// loaded at Initialize. Identifiers never reach SQL unless they pass.
// String filter values are converted to the column type; params.Filters is
// replaced, never modified in place.
func (s *Store) validate(params *QueryParams) (*tableSchema, error) {
	if params.Table == "" {
		return nil, invalidf("table is required")
	}
	ts, ok := s.schema[params.Table]
	if !ok {
		return nil, invalidf("unknown table %q", params.Table)
	}

	for _, c := range params.Columns {
		if !ts.has(c) {
			return nil, invalidf("unknown column %q in table %q", c, ts.name)
		}
	}
	filters := make([]Filter, len(params.Filters))
	for i, f := range params.Filters {
		if !ts.has(f.Column) {
			return nil, invalidf("unknown filter column %q in table %q", f.Column, ts.name)
		}
		op, err := ParseOp(string(f.Op))
		if err != nil {
			return nil, err
		}
		value, err := coerceValue(ts.columns[f.Column], op, f.Value)
		if err != nil {
			return nil, invalidf("filter %s: %v", f.Column, err)
		}
		filters[i] = Filter{Column: f.Column, Op: op, Value: value}
	}
	params.Filters = filters
	for _, o := range params.OrderBy {
		if !ts.has(o.Column) {
			return nil, invalidf("unknown order column %q in table %q", o.Column, ts.name)
		}
	}
	return ts, nil
}

func (s *Store) filtered(db *gorm.DB, ts *tableSchema, filters []Filter) *gorm.DB {
	q := db.Table(ts.name)
	for _, f := range filters {
		q = q.Where(condition(f))
	}
	return q
}

func condition(f Filter) clause.Expression {
	col := clause.Column{Name: f.Column}
	op, _ := ParseOp(string(f.Op))
	switch op {
	case OpNe:
		return clause.Neq{Column: col, Value: f.Value}
	case OpGt:
		return clause.Gt{Column: col, Value: f.Value}
	case OpGte:
		return clause.Gte{Column: col, Value: f.Value}
	case OpLt:
		return clause.Lt{Column: col, Value: f.Value}
	case OpLte:
		return clause.Lte{Column: col, Value: f.Value}
	case OpLike:
		return clause.Like{Column: col, Value: f.Value}
	case OpIn:
		return clause.IN{Column: col, Values: toValues(f.Value)}
	case OpIsNull:
		return clause.Eq{Column: col, Value: nil}
	case OpNotNull:
		return clause.Neq{Column: col, Value: nil}
	default:
		return clause.Eq{Column: col, Value: f.Value}
	}
}

// toValues spreads a slice into IN values; a scalar becomes a one-element list.
func toValues(v any) []any {
	if v == nil {
		return nil
	}
	if vs, ok := v.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// applyOrder adds the requested ordering, then the table key so pages are stable.
func applyOrder(q *gorm.DB, ts *tableSchema, orders []Order) *gorm.DB {
	keyed := false
	for _, o := range orders {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
		keyed = keyed || o.Column == ts.key
	}
	if !keyed && ts.key != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: ts.key}})
	}
	return q
}
