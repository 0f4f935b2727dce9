package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/app"
	"github.com/marmos91/fieldstore/pkg/config"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the fieldstore server",
	Long: `Start the fieldstore server with the specified configuration.

The server opens the database, applies pending migrations, opens the state
stores and the S3 archive, then serves the REST API until stopped.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Examples:
  # Start in background (default)
  fieldstore start

  # Start in foreground
  fieldstore start --foreground

  # Start with custom config file
  fieldstore start --config /etc/fieldstore/config.yaml

  # Start with environment variable overrides
  FIELDSTORE_LOGGING_LEVEL=DEBUG fieldstore start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/fieldstore/fieldstore.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/fieldstore/fieldstore.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source := configSource(GetConfigFile())
	fmt.Println("fieldstore - Field survey data store")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", source)

	opts := []app.Option{
		app.WithLogger(logger.Default()),
		app.WithVersion(Version),
	}
	if source != "defaults" {
		opts = append(opts, app.WithConfigPath(source))
	}
	application := app.New(cfg, opts...)

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// warnIfDefaultConfigMissing nudges users that start without running init.
func warnIfDefaultConfigMissing() {
	if GetConfigFile() == "" && !config.DefaultConfigExists() {
		fmt.Fprintln(os.Stderr, "No configuration file found, run 'fieldstore init' first")
	}
}
