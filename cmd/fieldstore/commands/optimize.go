package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/internal/cli/prompt"
)

var optimizeForce bool

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize the database",
	Long: `Reclaim space and refresh planner statistics.

SQLite runs VACUUM followed by ANALYZE; PostgreSQL runs VACUUM ANALYZE.
Both can take a while on large databases and block writers meanwhile, so
the command asks for confirmation unless --force is given.

Examples:
  fieldstore optimize
  fieldstore optimize --force`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().BoolVarP(&optimizeForce, "force", "f", false, "Skip confirmation prompt")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ok, err := prompt.ConfirmWithForce(prompt.Terminal{}, "Optimize the database now", optimizeForce)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
		return nil
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

	before, err := m.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if err := m.Optimize(cmd.Context()); err != nil {
		return fmt.Errorf("optimize failed: %w", err)
	}
	after, err := m.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Database optimized (%s -> %s)\n",
		output.FormatBytes(before.SizeBytes), output.FormatBytes(after.SizeBytes))
	return nil
}
