package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/archive"
	"github.com/marmos91/fieldstore/pkg/database"
)

var (
	createOutput string
	createUpload bool
	createKeep   bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Back up the database",
	Long: `Write a consistent copy of the configured database.

For SQLite databases:
  Creates a standalone database file using VACUUM INTO (pure Go, no external
  tools needed). The copy can be opened directly with sqlite3.

For PostgreSQL databases:
  Streams every table with COPY TO into a tar archive holding one CSV file
  per table.

With --upload the backup is sent to the S3 archive configured in the
archive section, then removed locally unless --keep is given.

Examples:
  # Backup to the default location
  fieldstore backup create

  # Backup to a specific file
  fieldstore backup create --output /tmp/fieldstore.db

  # Backup and upload to S3
  fieldstore backup create --upload`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createOutput, "output", "o", "", "Output file path (default: <data dir>/backups/fieldstore-<timestamp>.<ext>)")
	createCmd.Flags().BoolVar(&createUpload, "upload", false, "Upload the backup to the S3 archive")
	createCmd.Flags().BoolVar(&createKeep, "keep", false, "Keep the local file after uploading")
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if createUpload && !cfg.Archive.Enabled {
		return fmt.Errorf("--upload needs the S3 archive: set archive.enabled and archive.bucket")
	}

	ctx := cmd.Context()
	log := logger.Default()

	store := database.NewStore(database.WithLogger(log))
	if res := store.Initialize(ctx, &cfg.Database); !res.Success {
		return fmt.Errorf("failed to open database: %s", res.Error)
	}
	defer func() { _ = store.Close() }()

	path := createOutput
	if path == "" {
		path = defaultBackupPath(cfg.Database.Type, time.Now())
	}

	result, err := store.Backup(ctx, path)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Backup completed successfully")
	err = output.KeyValueTable(w,
		output.KV("File", result.Path),
		output.KV("Format", result.Format),
		output.KV("Size", output.FormatBytes(result.SizeBytes)),
		output.KV("Tables", result.Tables),
		output.KV("Duration", result.Duration.Round(time.Millisecond)),
	)
	if err != nil {
		return err
	}

	if !createUpload {
		return nil
	}

	obj, err := uploadBackup(ctx, archive.New(cfg.Archive, archive.WithLogger(log)), result.Path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nUploaded to s3://%s/%s (%s)\n", cfg.Archive.Bucket, obj.Key, output.FormatBytes(obj.Size))

	if !createKeep {
		if err := os.Remove(result.Path); err != nil {
			log.Warn("Failed to remove local backup", logger.KeyPath, result.Path, logger.KeyError, err)
		}
	}
	return nil
}

// uploadBackup opens the archive for a single upload.
func uploadBackup(ctx context.Context, a *archive.Archive, path string) (*archive.Object, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = a.Destroy(context.WithoutCancel(ctx)) }()

	obj, err := a.Upload(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return obj, nil
}

// defaultBackupPath places backups next to the default SQLite file, named
// by UTC timestamp. PostgreSQL backups are tar archives.
func defaultBackupPath(dbType database.DatabaseType, now time.Time) string {
	ext := ".db"
	if dbType == database.DatabaseTypePostgres {
		ext = ".tar"
	}
	dir := filepath.Join(filepath.Dir(database.DefaultSQLitePath()), "backups")
	return filepath.Join(dir, "fieldstore-"+now.UTC().Format("20060102T150405Z")+ext)
}
