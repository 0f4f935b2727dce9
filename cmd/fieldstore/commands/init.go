package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/prompt"
	"github.com/marmos91/fieldstore/pkg/config"
	"github.com/marmos91/fieldstore/pkg/database"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize a fieldstore configuration file.

By default, a commented sample is written to $XDG_CONFIG_HOME/fieldstore/config.yaml.
Use --config to specify a custom path and --interactive to answer a few
questions about the database, the S3 archive and the API instead.

Examples:
  # Initialize with default location
  fieldstore init

  # Initialize with custom path
  fieldstore init --config /etc/fieldstore/config.yaml

  # Ask for the database and archive settings
  fieldstore init --interactive

  # Force overwrite existing config
  fieldstore init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Build the configuration interactively")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	var err error
	if initInteractive {
		err = runInteractiveInit(prompt.Terminal{}, configPath, initForce)
	} else {
		err = config.InitConfigToPath(configPath, initForce)
	}
	if prompt.IsAborted(err) {
		fmt.Println("Aborted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Review the configuration file")
	fmt.Println("  2. Apply the schema with: fieldstore migrate")
	fmt.Println("  3. Start the server with: fieldstore start")
	if GetConfigFile() != "" {
		fmt.Printf("     (pass --config %s to every command)\n", configPath)
	}
	return nil
}

func runInteractiveInit(p prompt.Prompter, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := config.GetDefaultConfig()
	if err := runWizard(p, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return config.SaveConfig(cfg, path)
}

// runWizard asks for the settings that differ between installations and
// stores the answers in cfg.
func runWizard(p prompt.Prompter, cfg *config.Config) error {
	dbType, err := p.Select("Database", []prompt.SelectOption{
		{Label: "SQLite", Value: string(database.DatabaseTypeSQLite), Description: "Embedded single file database"},
		{Label: "PostgreSQL", Value: string(database.DatabaseTypePostgres), Description: "External PostgreSQL server"},
	})
	if err != nil {
		return err
	}
	cfg.Database.Type = database.DatabaseType(dbType)

	switch cfg.Database.Type {
	case database.DatabaseTypePostgres:
		if err := askPostgres(p, &cfg.Database.Postgres); err != nil {
			return err
		}
		cfg.Database.ApplyDefaults()
	default:
		path, err := p.Input("SQLite file", cfg.Database.SQLite.Path)
		if err != nil {
			return err
		}
		cfg.Database.SQLite.Path = path
	}

	archiveOn, err := p.Confirm("Upload backups to S3", false)
	if err != nil {
		return err
	}
	if archiveOn {
		bucket, err := p.InputRequired("Bucket", requireValue("bucket"))
		if err != nil {
			return err
		}
		region, err := p.Input("Region", cfg.Archive.Region)
		if err != nil {
			return err
		}
		endpoint, err := p.Input("Endpoint (empty for AWS)", "")
		if err != nil {
			return err
		}
		cfg.Archive.Enabled = true
		cfg.Archive.Bucket = bucket
		cfg.Archive.Region = region
		cfg.Archive.Endpoint = endpoint
	}

	port, err := p.InputPort("API port", cfg.API.Port)
	if err != nil {
		return err
	}
	cfg.API.Port = port
	return nil
}

func askPostgres(p prompt.Prompter, pg *database.PostgresConfig) error {
	host, err := p.Input("Host", orDefault(pg.Host, "localhost"))
	if err != nil {
		return err
	}
	defaultPort := pg.Port
	if defaultPort == 0 {
		defaultPort = 5432
	}
	port, err := p.InputPort("Port", defaultPort)
	if err != nil {
		return err
	}
	name, err := p.Input("Database", orDefault(pg.Database, "fieldstore"))
	if err != nil {
		return err
	}
	user, err := p.Input("User", orDefault(pg.User, "fieldstore"))
	if err != nil {
		return err
	}
	password, err := p.Password("Password")
	if err != nil {
		return err
	}

	pg.Host, pg.Port, pg.Database, pg.User, pg.Password = host, port, name, user, password
	return nil
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
