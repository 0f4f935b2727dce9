package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/pkg/api/handlers"
	"github.com/marmos91/fieldstore/pkg/apiclient"
	"github.com/marmos91/fieldstore/pkg/config"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIURL  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the fieldstore server.

The PID file is checked first, then the health endpoints of the REST API
are queried for uptime, database readiness and component health.

Examples:
  # Check status (API address taken from the configuration)
  fieldstore status

  # Check a server on another address
  fieldstore status --api-url http://10.0.0.5:8080

  # Output as JSON
  fieldstore status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/fieldstore/fieldstore.pid)")
	statusCmd.Flags().StringVar(&statusAPIURL, "api-url", "", "API base URL (default: from configuration)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running       bool                       `json:"running" yaml:"running"`
	PID           int                        `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message       string                     `json:"message" yaml:"message"`
	StartedAt     time.Time                  `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime        string                     `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Healthy       bool                       `json:"healthy" yaml:"healthy"`
	Database      string                     `json:"database,omitempty" yaml:"database,omitempty"`
	SchemaVersion int                        `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	Components    []handlers.ComponentHealth `json:"components,omitempty" yaml:"components,omitempty"`
}

// defaultAPIURL derives the API address from the configuration, falling
// back to localhost:8080 when no configuration can be read.
func defaultAPIURL() string {
	port := 8080
	if cfg, err := config.Load(GetConfigFile()); err == nil && cfg.API.Port > 0 {
		port = cfg.API.Port
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	apiURL := statusAPIURL
	if apiURL == "" {
		apiURL = defaultAPIURL()
	}

	status := ServerStatus{Message: "Server is not running"}
	if pid, running := isProcessRunning(pidPath); running {
		status.Running = true
		status.PID = pid
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	collectStatus(ctx, apiclient.New(apiURL, apiclient.WithTimeout(2*time.Second)), &status)

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format != output.FormatTable {
		return printer.Print(status)
	}
	return printStatusTable(cmd, status)
}

// collectStatus fills status from the health endpoints. Failures are
// reported through Message; status never fails the command.
func collectStatus(ctx context.Context, client *apiclient.Client, status *ServerStatus) {
	live, err := client.Health(ctx)
	if err != nil {
		if status.Running {
			status.Message = "Server process exists but health check failed"
		}
		return
	}

	status.Running = true
	status.StartedAt = live.StartedAt
	status.Uptime = live.Uptime

	ready, err := client.Ready(ctx)
	if err != nil {
		status.Message = fmt.Sprintf("Server is running but readiness check failed: %v", err)
		return
	}
	status.Database = ready.Database
	status.SchemaVersion = ready.SchemaVersion

	comps, healthy, err := client.Components(ctx)
	if err == nil {
		status.Components = comps.Components
	}

	status.Healthy = ready.Ready && healthy
	switch {
	case status.Healthy:
		status.Message = "Server is running and healthy"
	case !ready.Ready && ready.Error != "":
		status.Message = fmt.Sprintf("Server is running but not ready: %s", ready.Error)
	case len(ready.NotInitialized) > 0:
		status.Message = fmt.Sprintf("Server is running but components are not initialized: %v", ready.NotInitialized)
	default:
		status.Message = "Server is running but unhealthy"
	}
}

func printStatusTable(cmd *cobra.Command, status ServerStatus) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "fieldstore Server Status")
	fmt.Fprintln(w, "========================")
	fmt.Fprintln(w)

	state := "○ Stopped"
	if status.Running {
		state = "● Running"
		if !status.Healthy {
			state = "● Running (unhealthy)"
		}
	}

	pairs := []output.KeyValue{output.KV("Status", state)}
	if status.PID != 0 {
		pairs = append(pairs, output.KV("PID", status.PID))
	}
	if !status.StartedAt.IsZero() {
		pairs = append(pairs, output.KV("Started", output.FormatTime(status.StartedAt)))
	}
	if status.Uptime != "" {
		if d, err := time.ParseDuration(status.Uptime); err == nil {
			pairs = append(pairs, output.KV("Uptime", output.FormatUptime(d)))
		} else {
			pairs = append(pairs, output.KV("Uptime", status.Uptime))
		}
	}
	if status.Database != "" {
		pairs = append(pairs, output.KV("Database", fmt.Sprintf("%s (schema v%d)", status.Database, status.SchemaVersion)))
	}
	if err := output.KeyValueTable(w, pairs...); err != nil {
		return err
	}

	if len(status.Components) > 0 {
		fmt.Fprintln(w)
		table := output.NewTableData("COMPONENT", "STATUS", "LATENCY", "ERROR")
		for _, c := range status.Components {
			table.AddRow(c.Name, c.Status, c.Latency, c.Error)
		}
		if err := output.PrintTable(w, table); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", status.Message)
	fmt.Fprintln(w)

	if !status.Running {
		fmt.Fprintln(os.Stderr, "Use 'fieldstore start' to start the server")
	}
	return nil
}
