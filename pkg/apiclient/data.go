package apiclient

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/marmos91/fieldstore/pkg/api/handlers"
	"github.com/marmos91/fieldstore/pkg/archive"
	"github.com/marmos91/fieldstore/pkg/database"
)

// Stats calls GET /api/v1/stats.
func (c *Client) Stats(ctx context.Context) (*database.Stats, error) {
	var stats database.Stats
	if err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Migrations calls GET /api/v1/migrations.
func (c *Client) Migrations(ctx context.Context) ([]database.MigrationStatus, error) {
	var out []database.MigrationStatus
	if err := c.get(ctx, "/api/v1/migrations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ComponentStatus calls GET /api/v1/components.
func (c *Client) ComponentStatus(ctx context.Context) ([]handlers.ComponentStatus, error) {
	var out []handlers.ComponentStatus
	if err := c.get(ctx, "/api/v1/components", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tables calls GET /api/v1/tables.
func (c *Client) Tables(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.get(ctx, "/api/v1/tables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RowsQuery selects a page of rows. Zero values are left to the server.
type RowsQuery struct {
	Page     int
	PageSize int
	Offset   *int

	// Order is comma separated columns, "-" prefix for descending.
	Order   string
	Columns []string

	// Where holds expressions such as "username~user1%".
	Where []string

	// Equals filters column=value.
	Equals map[string]string
}

func (q RowsQuery) values() url.Values {
	v := url.Values{}
	for col, val := range q.Equals {
		v.Set(col, val)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Offset != nil {
		v.Set("offset", strconv.Itoa(*q.Offset))
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if len(q.Columns) > 0 {
		v.Set("columns", strings.Join(q.Columns, ","))
	}
	for _, w := range q.Where {
		v.Add("where", w)
	}
	return v
}

// Rows calls GET /api/v1/tables/{table}.
func (c *Client) Rows(ctx context.Context, table string, q RowsQuery) (*database.PaginationResult[database.Row], error) {
	var out database.PaginationResult[database.Row]
	if err := c.get(ctx, "/api/v1/tables/"+url.PathEscape(table), q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// State calls GET /api/v1/state/{component}.
func (c *Client) State(ctx context.Context, component string) (map[string]json.RawMessage, error) {
	var out map[string]json.RawMessage
	if err := c.get(ctx, "/api/v1/state/"+url.PathEscape(component), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Backups is the answer of GET /api/v1/backups.
type Backups struct {
	Bucket  string           `json:"bucket" yaml:"bucket"`
	Objects []archive.Object `json:"objects" yaml:"objects"`
}

// Backups calls GET /api/v1/backups.
func (c *Client) Backups(ctx context.Context) (*Backups, error) {
	var out Backups
	if err := c.get(ctx, "/api/v1/backups", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
