package output

import (
	"encoding/base64"
	"fmt"
	"sort"
	"time"
)

// RowsTable renders database rows. Columns keep the order given; when none
// are given they are the sorted union of the rows' keys.
type RowsTable struct {
	columns []string
	rows    []map[string]any
}

// NewRowsTable creates a table over rows.
func NewRowsTable(columns []string, rows []map[string]any) *RowsTable {
	if len(columns) == 0 {
		seen := make(map[string]bool)
		for _, row := range rows {
			for k := range row {
				if !seen[k] {
					seen[k] = true
					columns = append(columns, k)
				}
			}
		}
		sort.Strings(columns)
	}
	return &RowsTable{columns: columns, rows: rows}
}

// Headers implements TableRenderer.
func (t *RowsTable) Headers() []string {
	return t.columns
}

// Rows implements TableRenderer.
func (t *RowsTable) Rows() [][]string {
	out := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, col := range t.columns {
			cells[i] = FormatValue(row[col])
		}
		out = append(out, cells)
	}
	return out
}

// FormatValue renders a column value for a table cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
