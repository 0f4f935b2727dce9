package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

func TestParseFilter(t *testing.T) {
	cases := map[string]Filter{
		"file_name=a.jpg":                   {Column: "file_name", Op: OpEq, Value: "a.jpg"},
		"file_name!=a.jpg":                  {Column: "file_name", Op: OpNe, Value: "a.jpg"},
		"size_bytes>=1000":                  {Column: "size_bytes", Op: OpGte, Value: "1000"},
		"size_bytes<2500":                   {Column: "size_bytes", Op: OpLt, Value: "2500"},
		"file_name~%.jpg":                   {Column: "file_name", Op: OpLike, Value: "%.jpg"},
		"caption=":                          {Column: "caption", Op: OpEq, Value: ""},
		"taken_at:is_null":                  {Column: "taken_at", Op: OpIsNull},
		"status:in:active, archived":        {Column: "status", Op: OpIn, Value: []any{"active", "archived"}},
		"taken_at:gte:2025-06-01T10:00:00Z": {Column: "taken_at", Op: OpGte, Value: "2025-06-01T10:00:00Z"},
		"caption:like:%a=b%":                {Column: "caption", Op: OpLike, Value: "%a=b%"},
	}
	for expr, want := range cases {
		got, err := ParseFilter(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}

	for _, bad := range []string{"", "nonsense", ":eq:1", "size:regex:1", "size:gt"} {
		_, err := ParseFilter(bad)
		assert.True(t, dberrors.IsKind(err, dberrors.InvalidArgument), bad)
	}
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, []Order{
		{Column: "taken_at", Desc: true},
		{Column: "file_name"},
		{Column: "id"},
	}, ParseOrder("-taken_at, file_name,,+id"))
	assert.Empty(t, ParseOrder(""))
}

func TestCoerceValue(t *testing.T) {
	v, err := coerceValue(schema.Int, OpGt, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = coerceValue(schema.Float, OpEq, "45.1")
	require.NoError(t, err)
	assert.Equal(t, 45.1, v)

	v, err = coerceValue(schema.Time, OpGte, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), v)

	v, err = coerceValue(schema.Int, OpIn, []any{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v)

	v, err = coerceValue(schema.Int, OpEq, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = coerceValue(schema.Int, OpLike, "1%")
	require.NoError(t, err)
	assert.Equal(t, "1%", v)

	_, err = coerceValue(schema.Int, OpEq, "many")
	assert.Error(t, err)
	_, err = coerceValue(schema.Bool, OpEq, "perhaps")
	assert.Error(t, err)
}

func TestQueryWithParsedFilters(t *testing.T) {
	s := newTestStore(t)
	seedSurvey(t, s)
	ctx := context.Background()

	parse := func(exprs ...string) []Filter {
		t.Helper()
		out := make([]Filter, len(exprs))
		for i, e := range exprs {
			f, err := ParseFilter(e)
			require.NoError(t, err)
			out[i] = f
		}
		return out
	}

	n, err := s.Count(ctx, QueryParams{Table: "photos", Filters: parse("size_bytes>1000")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rows, err := s.Query(ctx, QueryParams{
		Table:   "photos",
		Columns: []string{"file_name"},
		Filters: parse("size_bytes:in:1000,4000"),
		OrderBy: ParseOrder("-size_bytes"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c.jpg", rows[0]["file_name"])
	assert.Equal(t, "a.jpg", rows[1]["file_name"])

	_, err = s.Count(ctx, QueryParams{Table: "photos", Filters: parse("size_bytes=lots")})
	assert.True(t, dberrors.IsKind(err, dberrors.InvalidArgument))
}
