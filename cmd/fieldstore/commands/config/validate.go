package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/pkg/config"
	"github.com/marmos91/fieldstore/pkg/database"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the fieldstore configuration file.

Checks for syntax errors, missing required fields, and invalid values.
Settings that are valid but probably unintended are reported as warnings.

Examples:
  # Validate default config
  fieldstore config validate

  # Validate specific config file
  fieldstore config validate --config /etc/fieldstore/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Configuration file: %s\n", displayPath)
	fmt.Fprintln(w, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}

	fmt.Fprintf(w, "\nConfiguration summary:\n")
	fmt.Fprintf(w, "  Database type:   %s\n", cfg.Database.Type)
	fmt.Fprintf(w, "  API enabled:     %t (port %d)\n", cfg.API.IsEnabled(), cfg.API.Port)
	fmt.Fprintf(w, "  Archive:         %s\n", archiveSummary(cfg))
	fmt.Fprintf(w, "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}

// configWarnings lists settings that load fine but are likely mistakes.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if !cfg.Archive.Enabled {
		warnings = append(warnings, "S3 archive disabled - 'fieldstore backup create --upload' will fail")
	}
	if cfg.Database.Type == database.DatabaseTypeSQLite && cfg.Database.SQLite.IsMemory() {
		warnings = append(warnings, "SQLite runs in memory - data is lost when the server stops")
	}
	if cfg.State.InMemory {
		warnings = append(warnings, "State stores run in memory - state is lost when the server stops")
	}
	if cfg.Database.Type == database.DatabaseTypePostgres && cfg.Database.Postgres.Password == "" {
		warnings = append(warnings, "PostgreSQL password is empty")
	}
	if cfg.Metrics.Enabled && !cfg.API.IsEnabled() {
		warnings = append(warnings, "Metrics enabled but the API is disabled - /metrics will not be served")
	}
	return warnings
}

func archiveSummary(cfg *config.Config) string {
	if !cfg.Archive.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("s3://%s/%s", cfg.Archive.Bucket, cfg.Archive.Prefix)
}
