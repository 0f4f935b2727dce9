// Package backup implements backup subcommands for fieldstore.
package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/config"
)

// Cmd is the backup subcommand.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup operations",
	Long: `Back up the fieldstore database and manage archived backups.

Subcommands:
  create  Write a consistent copy of the database, optionally uploading it to S3
  list    List backups stored in the S3 archive`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
}

// loadConfig reads the file named by the root --config flag and applies
// its logging section.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return nil, err
	}

	err = logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
