package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/apiclient"
	"github.com/marmos91/fieldstore/pkg/archive"
)

var (
	listOutput string
	listRemote string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived backups",
	Long: `List the backups stored in the S3 archive, newest first.

With --remote the list is read from a running server instead of calling
S3 directly.

Examples:
  fieldstore backup list
  fieldstore backup list -o json
  fieldstore backup list --remote http://localhost:8080`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
	listCmd.Flags().StringVar(&listRemote, "remote", "", "Read the list from a running server at this base URL")
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	var backups *apiclient.Backups
	if listRemote != "" {
		backups, err = apiclient.New(listRemote).Backups(cmd.Context())
	} else {
		backups, err = listArchive(cmd)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.NewPrinter(w, format, false).Print(backups)
	}

	if len(backups.Objects) == 0 {
		fmt.Fprintf(w, "No backups in bucket %s\n", backups.Bucket)
		return nil
	}
	return output.PrintTable(w, objectsTable(backups.Objects))
}

func listArchive(cmd *cobra.Command) (*apiclient.Backups, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("the S3 archive is disabled: set archive.enabled and archive.bucket")
	}

	ctx := cmd.Context()
	a := archive.New(cfg.Archive, archive.WithLogger(logger.Default()))
	if err := a.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = a.Destroy(ctx) }()

	objects, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	return &apiclient.Backups{Bucket: a.Bucket(), Objects: objects}, nil
}

func objectsTable(objects []archive.Object) *output.TableData {
	table := output.NewTableData("KEY", "SIZE", "LAST MODIFIED")
	for _, o := range objects {
		table.AddRow(o.Key, output.FormatBytes(o.Size), output.FormatTime(o.LastModified))
	}
	return table
}
