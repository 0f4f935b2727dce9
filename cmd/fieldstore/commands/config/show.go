package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/pkg/config"
)

const redacted = "********"

var (
	showOutput  string
	showSecrets bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective fieldstore configuration, after defaults and
FIELDSTORE_* environment overrides have been applied.

Passwords and S3 secrets are masked unless --show-secrets is given.

Examples:
  # Show default config as YAML
  fieldstore config show

  # Show as JSON
  fieldstore config show --output json

  # Show specific config file
  fieldstore config show --config /etc/fieldstore/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print passwords and secret keys")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	if !showSecrets {
		redactSecrets(cfg)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}

// redactSecrets masks credentials that are set.
func redactSecrets(cfg *config.Config) {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&cfg.Database.Postgres.Password)
	mask(&cfg.Archive.AccessKeyID)
	mask(&cfg.Archive.SecretAccessKey)
}
