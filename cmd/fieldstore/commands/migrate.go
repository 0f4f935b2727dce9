package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/database"
)

var migrateOutput string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the configured database.

This command opens the SQLite or PostgreSQL database, applies every pending
schema migration and prints the migration history. It is safe to run while
the schema is already current. The server applies migrations on start as
well, so running this separately is only needed to upgrade ahead of time.

Examples:
  # Run migrations with default config
  fieldstore migrate

  # Run migrations with custom config
  fieldstore migrate --config /etc/fieldstore/config.yaml`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVarP(&migrateOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(migrateOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("Running database migrations", logger.KeyDatabaseType, cfg.Database.Type)

	store := database.NewStore(database.WithLogger(logger.Default()))
	res := store.Initialize(cmd.Context(), &cfg.Database)
	if !res.Success {
		return fmt.Errorf("migration failed: %s", res.Error)
	}
	defer func() { _ = store.Close() }()

	history, err := store.Migrations(cmd.Context())
	if err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format != output.FormatTable {
		return printer.Print(map[string]any{
			"result":     res,
			"migrations": history,
		})
	}

	printer.Printf("Migrations completed successfully (database type: %s)\n", store.Type())
	printer.Printf("  Applied now:    %d\n", res.MigrationsApplied)
	printer.Printf("  Schema version: %d\n\n", res.SchemaVersion)

	table := output.NewTableData("VERSION", "NAME", "APPLIED", "APPLIED AT")
	for _, m := range history {
		appliedAt := "-"
		if m.AppliedAt != nil {
			appliedAt = output.FormatTime(*m.AppliedAt)
		}
		table.AddRow(fmt.Sprintf("%d", m.Version), m.Name, yesNo(m.Applied), appliedAt)
	}
	if err := output.PrintTable(cmd.OutOrStdout(), table); err != nil {
		return err
	}

	target := cfg.Database.SchemaVersion
	if target == 0 {
		target = database.LatestVersion()
	}
	if res.SchemaVersion != target {
		return fmt.Errorf("schema version %d does not match target %d", res.SchemaVersion, target)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
