package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
)

var statsOutput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long: `Show row counts per table, index count, on-disk size and connection
pool usage of the configured database.

Examples:
  # Show statistics as tables
  fieldstore stats

  # Show statistics as JSON
  fieldstore stats -o json`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statsOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := openManager(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	stats, err := m.Stats(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.NewPrinter(w, format, false).Print(stats)
	}

	err = output.KeyValueTable(w,
		output.KV("Type", stats.Type),
		output.KV("Schema version", stats.SchemaVersion),
		output.KV("Indexes", stats.IndexCount),
		output.KV("Size", output.FormatBytes(stats.SizeBytes)),
		output.KV("Connections", fmt.Sprintf("%d open, %d in use, %d idle", stats.OpenConnections, stats.InUse, stats.Idle)),
	)
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	table := output.NewTableData("TABLE", "ROWS")
	for _, t := range stats.Tables {
		table.AddRow(t.Name, fmt.Sprintf("%d", t.Rows))
	}
	return output.PrintTable(w, table)
}
