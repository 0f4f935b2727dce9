package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm/schema"
)

// filterOperators maps the infix forms accepted by ParseFilter, longest first.
var filterOperators = []struct {
	token string
	op    Op
}{
	{">=", OpGte},
	{"<=", OpLte},
	{"!=", OpNe},
	{"=", OpEq},
	{">", OpGt},
	{"<", OpLt},
	{"~", OpLike},
}

// ParseFilter parses a textual filter. Accepted forms:
//
//	column=value  column!=value  column>value  column>=value
//	column<value  column<=value  column~pattern
//	column:op[:value]   e.g. status:in:active,archived or caption:is_null
//
// Values stay strings; the store converts them to the column type.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, invalidf("empty filter")
	}

	if i := strings.IndexAny(expr, "=!<>~"); i > 0 && !strings.Contains(expr[:i], ":") {
		rest := expr[i:]
		for _, fo := range filterOperators {
			if strings.HasPrefix(rest, fo.token) {
				return Filter{
					Column: strings.TrimSpace(expr[:i]),
					Op:     fo.op,
					Value:  rest[len(fo.token):],
				}, nil
			}
		}
	}

	parts := strings.SplitN(expr, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return Filter{}, invalidf("malformed filter %q, want column=value or column:op:value", expr)
	}
	op, err := ParseOp(parts[1])
	if err != nil {
		return Filter{}, err
	}

	f := Filter{Column: strings.TrimSpace(parts[0]), Op: op}
	switch {
	case op == OpIsNull || op == OpNotNull:
	case len(parts) < 3:
		return Filter{}, invalidf("filter %q needs a value", expr)
	case op == OpIn:
		var values []any
		for _, v := range strings.Split(parts[2], ",") {
			values = append(values, strings.TrimSpace(v))
		}
		f.Value = values
	default:
		f.Value = parts[2]
	}
	return f, nil
}

// ParseOrder parses a comma separated ordering; a leading '-' sorts that
// column descending: "-taken_at,file_name".
func ParseOrder(expr string) []Order {
	var orders []Order
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			orders = append(orders, Order{Column: strings.TrimSpace(part[1:]), Desc: true})
			continue
		}
		orders = append(orders, Order{Column: strings.TrimPrefix(part, "+")})
	}
	return orders
}

// coerceValue converts string filter values to the Go type of the column.
func coerceValue(dt schema.DataType, op Op, v any) (any, error) {
	switch op {
	case OpIsNull, OpNotNull:
		return nil, nil
	case OpLike:
		return v, nil
	case OpIn:
		values := toValues(v)
		out := make([]any, len(values))
		for i, e := range values {
			c, err := coerceScalar(dt, e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return coerceScalar(dt, v)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func coerceScalar(dt schema.DataType, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}

	switch dt {
	case schema.Int, schema.Uint:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return n, nil
	case schema.Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	case schema.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", s)
		}
		return b, nil
	case schema.Time:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%q is not a time (want RFC 3339 or YYYY-MM-DD)", s)
	default:
		return s, nil
	}
}
