package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/pkg/database/models"
)

// seedSurvey creates one project with one site holding three photos, one
// of them without a capture time.
func seedSurvey(t *testing.T, s *Store) {
	t.Helper()
	taken := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RunTransaction(context.Background(), func(tx *Tx) error {
		owner := &models.User{Username: "surveyor"}
		if err := tx.Create(owner); err != nil {
			return err
		}
		project := &models.Project{Name: "river crossing", OwnerID: &owner.ID}
		if err := tx.Create(project); err != nil {
			return err
		}
		site := &models.Site{ProjectID: project.ID, Name: "north bank", Latitude: 45.1, Longitude: 9.2}
		if err := tx.Create(site); err != nil {
			return err
		}
		return tx.Create(&[]models.Photo{
			{SiteID: site.ID, FileName: "a.jpg", SizeBytes: 1000, TakenAt: &taken},
			{SiteID: site.ID, FileName: "b.jpg", SizeBytes: 2500, TakenAt: &taken},
			{SiteID: site.ID, FileName: "c.jpg", SizeBytes: 4000},
		})
	}))
}

func TestQueryFilters(t *testing.T) {
	s := newTestStore(t)
	seedSurvey(t, s)
	ctx := context.Background()

	count := func(filters ...Filter) int64 {
		t.Helper()
		n, err := s.Count(ctx, QueryParams{Table: "photos", Filters: filters})
		require.NoError(t, err)
		return n
	}

	assert.EqualValues(t, 3, count())
	assert.EqualValues(t, 1, count(Filter{Column: "file_name", Op: OpEq, Value: "b.jpg"}))
	assert.EqualValues(t, 2, count(Filter{Column: "file_name", Op: OpNe, Value: "b.jpg"}))
	assert.EqualValues(t, 2, count(Filter{Column: "size_bytes", Op: OpGt, Value: 1000}))
	assert.EqualValues(t, 3, count(Filter{Column: "size_bytes", Op: OpGte, Value: 1000}))
	assert.EqualValues(t, 1, count(Filter{Column: "size_bytes", Op: OpLt, Value: 2500}))
	assert.EqualValues(t, 2, count(Filter{Column: "size_bytes", Op: OpLte, Value: 2500}))
	assert.EqualValues(t, 3, count(Filter{Column: "file_name", Op: OpLike, Value: "%.jpg"}))
	assert.EqualValues(t, 2, count(Filter{Column: "file_name", Op: OpIn, Value: []string{"a.jpg", "c.jpg"}}))
	assert.EqualValues(t, 1, count(Filter{Column: "taken_at", Op: OpIsNull}))
	assert.EqualValues(t, 2, count(Filter{Column: "taken_at", Op: OpNotNull}))
	assert.EqualValues(t, 1, count(
		Filter{Column: "taken_at", Op: OpNotNull},
		Filter{Column: "size_bytes", Op: OpGt, Value: 2000},
	))
}

func TestQueryOrderLimitOffset(t *testing.T) {
	s := newTestStore(t)
	seedSurvey(t, s)

	rows, err := s.Query(context.Background(), QueryParams{
		Table:   "photos",
		Columns: []string{"file_name", "size_bytes"},
		OrderBy: []Order{{Column: "size_bytes", Desc: true}},
		Limit:   2,
		Offset:  1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b.jpg", rows[0]["file_name"])
	assert.Equal(t, "a.jpg", rows[1]["file_name"])
	assert.NotContains(t, rows[0], "id")
}

func TestQueryRejectsNegativeWindow(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Query(context.Background(), QueryParams{Table: "users", Limit: -1})
	assert.Error(t, err)
}

func TestForeignKeysAreEnforced(t *testing.T) {
	s := newTestStore(t)

	err := s.RunTransaction(context.Background(), func(tx *Tx) error {
		return tx.Create(&models.Site{ProjectID: "missing", Name: "orphan"})
	})
	assert.Error(t, err)
	assert.Zero(t, mustCount(t, s, "sites"))
}

func mustCount(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	n, err := s.Count(context.Background(), QueryParams{Table: table})
	require.NoError(t, err)
	return n
}

func TestParseOp(t *testing.T) {
	for _, name := range []string{"eq", "ne", "gt", "gte", "lt", "lte", "like", "in", "is_null", "not_null", " EQ "} {
		_, err := ParseOp(name)
		assert.NoError(t, err, name)
	}
	op, err := ParseOp("")
	require.NoError(t, err)
	assert.Equal(t, OpEq, op)

	_, err = ParseOp("between")
	assert.Error(t, err)
}

func TestToValues(t *testing.T) {
	assert.Equal(t, []any{1, 2}, toValues([]int{1, 2}))
	assert.Equal(t, []any{"a"}, toValues("a"))
	assert.Equal(t, []any{"x", 3}, toValues([]any{"x", 3}))
	assert.Equal(t, []any{[]byte("raw")}, toValues([]byte("raw")))
	assert.Nil(t, toValues(nil))
}
