package database

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/fieldstore/internal/telemetry"
)

// PaginationParams selects one page of rows. Page is 0-based. When Offset
// is set it takes precedence over Page.
type PaginationParams struct {
	Table    string   `json:"table"`
	Columns  []string `json:"columns,omitempty"`
	Filters  []Filter `json:"filters,omitempty"`
	OrderBy  []Order  `json:"order_by,omitempty"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Offset   *int     `json:"offset,omitempty"`
}

// PaginationResult is one page of items. TotalCount counts every row that
// matches the filters, regardless of page.
type PaginationResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	HasMore    bool  `json:"has_more"`
}

// window resolves the page size and row offset of p.
func (p PaginationParams) window(defaultSize, maxSize int) (offset, size int, err error) {
	size = p.PageSize
	switch {
	case size < 0:
		return 0, 0, invalidf("page_size must not be negative")
	case size == 0:
		size = defaultSize
	case maxSize > 0 && size > maxSize:
		size = maxSize
	}

	if p.Offset != nil {
		if *p.Offset < 0 {
			return 0, 0, invalidf("offset must not be negative")
		}
		return *p.Offset, size, nil
	}
	if p.Page < 0 {
		return 0, 0, invalidf("page must not be negative")
	}
	return p.Page * size, size, nil
}

// newPage assembles a result from one page of items.
func newPage[T any](items []T, total int64, offset, size int) *PaginationResult[T] {
	total = max(total, 0)
	return &PaginationResult[T]{
		Items:      items,
		TotalCount: total,
		Page:       offset / size,
		PageSize:   size,
		HasMore:    int64(offset)+int64(size) < total,
	}
}

// Paginate returns one page of rows together with the total matching count.
// Both are read in the same transaction, so they describe one snapshot.
func (s *Store) Paginate(ctx context.Context, params PaginationParams) (*PaginationResult[Row], error) {
	if tx := s.activeTx(ctx); tx != nil {
		return s.paginate(tx.db, params)
	}

	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "paginate")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := telemetry.StartStoreSpan(ctx, "paginate", string(s.cfg.Type),
		telemetry.Table(params.Table), telemetry.Page(params.Page), telemetry.PageSize(params.PageSize))
	defer span.End()

	var result *PaginationResult[Row]
	err = db.WithContext(ctx).Transaction(func(rtx *gorm.DB) error {
		var err error
		result, err = s.paginate(rtx, params)
		return err
	}, s.readTxOptions()...)
	s.observe("paginate", start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, translateError("paginate", err)
	}

	telemetry.SetAttributes(ctx, telemetry.Rows(len(result.Items)))
	return result, nil
}

func (s *Store) paginate(db *gorm.DB, params PaginationParams) (*PaginationResult[Row], error) {
	offset, size, err := params.window(s.cfg.PageSize, s.cfg.MaxPageSize)
	if err != nil {
		return nil, err
	}

	qp := QueryParams{
		Table:   params.Table,
		Columns: params.Columns,
		Filters: params.Filters,
		OrderBy: params.OrderBy,
		Limit:   size,
		Offset:  offset,
	}

	total, err := s.count(db, qp)
	if err != nil {
		return nil, err
	}

	items := []Row{}
	if int64(offset) < total {
		if items, err = s.query(db, qp); err != nil {
			return nil, err
		}
	}
	return newPage(items, total, offset, size), nil
}

// readTxOptions returns the options of the snapshot read used by Paginate.
// SQLite reads inside one deferred transaction already see a single snapshot.
func (s *Store) readTxOptions() []*sql.TxOptions {
	if s.cfg.Type == DatabaseTypePostgres {
		return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
	}
	return nil
}
