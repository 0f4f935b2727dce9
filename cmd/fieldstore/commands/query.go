package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/pkg/apiclient"
	"github.com/marmos91/fieldstore/pkg/database"
)

var (
	queryWhere    []string
	queryOrder    string
	queryColumns  []string
	queryPage     int
	queryPageSize int
	queryOffset   int
	queryRemote   string
	queryOutput   string
)

var queryCmd = &cobra.Command{
	Use:   "query <table>",
	Short: "Query one page of rows from a table",
	Long: `Query one page of rows from a table of the configured database.

Filters use the same expressions as the REST API:
  column=value  column!=value  column>value  column>=value
  column<value  column<=value  column~pattern (LIKE)
  column:op[:value]  e.g. status:in:active,archived or caption:is_null

Pages are 0-based. --offset overrides --page when given.

With --remote the query is sent to a running server instead of opening the
database directly.

Examples:
  # First page of surveys
  fieldstore query surveys

  # Filter and sort
  fieldstore query observations --where "species~quercus%" --order -observed_at

  # Second page of 50 rows, selected columns only
  fieldstore query sites --page 1 --page-size 50 --columns id,name

  # Query a running server
  fieldstore query surveys --remote http://localhost:8080 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryWhere, "where", "w", nil, "Filter expression (repeatable)")
	queryCmd.Flags().StringVar(&queryOrder, "order", "", "Comma separated sort columns, '-' prefix for descending")
	queryCmd.Flags().StringSliceVar(&queryColumns, "columns", nil, "Columns to return (default: all)")
	queryCmd.Flags().IntVar(&queryPage, "page", 0, "0-based page number")
	queryCmd.Flags().IntVar(&queryPageSize, "page-size", 0, "Rows per page (default: database.page_size)")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "Row offset, overrides --page")
	queryCmd.Flags().StringVar(&queryRemote, "remote", "", "Query a running server at this base URL")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(queryOutput)
	if err != nil {
		return err
	}

	table := args[0]
	var offset *int
	if cmd.Flags().Changed("offset") {
		offset = &queryOffset
	}

	var page *database.PaginationResult[database.Row]
	if queryRemote != "" {
		page, err = apiclient.New(queryRemote).Rows(cmd.Context(), table, apiclient.RowsQuery{
			Page:     queryPage,
			PageSize: queryPageSize,
			Offset:   offset,
			Order:    queryOrder,
			Columns:  queryColumns,
			Where:    queryWhere,
		})
	} else {
		page, err = queryLocal(cmd, table, offset)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.NewPrinter(w, format, false).Print(page)
	}

	if err := output.PrintTable(w, output.NewRowsTable(queryColumns, page.Items)); err != nil {
		return err
	}
	more := ""
	if page.HasMore {
		more = fmt.Sprintf(", next: --page %d", page.Page+1)
	}
	fmt.Fprintf(w, "\n%d of %d rows (page %d, size %d%s)\n",
		len(page.Items), page.TotalCount, page.Page, page.PageSize, more)
	return nil
}

func queryLocal(cmd *cobra.Command, table string, offset *int) (*database.PaginationResult[database.Row], error) {
	params, err := buildPaginationParams(table, queryWhere, queryOrder, queryColumns, queryPage, queryPageSize, offset)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	m, err := openManager(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = m.Close() }()

	return m.Store().Paginate(cmd.Context(), params)
}

// buildPaginationParams turns command line flags into store parameters.
func buildPaginationParams(table string, where []string, order string, columns []string, page, pageSize int, offset *int) (database.PaginationParams, error) {
	params := database.PaginationParams{
		Table:    table,
		Columns:  columns,
		Page:     page,
		PageSize: pageSize,
		Offset:   offset,
	}
	for _, expr := range where {
		f, err := database.ParseFilter(expr)
		if err != nil {
			return params, err
		}
		params.Filters = append(params.Filters, f)
	}
	if strings.TrimSpace(order) != "" {
		params.OrderBy = database.ParseOrder(order)
	}
	return params, nil
}
