package database

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/internal/telemetry"
)

var errBackupUnsupported = errors.New("backup is not supported for this database type")

// BackupResult describes a finished backup.
type BackupResult struct {
	Path      string        `json:"path"`
	Format    string        `json:"format"`
	SizeBytes int64         `json:"size_bytes"`
	Tables    int           `json:"tables"`
	Duration  time.Duration `json:"duration"`
}

// Backup formats written by Store.Backup.
const (
	BackupFormatSQLite = "sqlite"
	BackupFormatCSVTar = "csv-tar"
)

// Backup writes a consistent copy of the database to path, which must not
// exist. SQLite produces a database file via VACUUM INTO; PostgreSQL
// produces a tar archive holding one CSV file per table.
func (s *Store) Backup(ctx context.Context, path string) (*BackupResult, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "backup")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, invalidf("backup path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, invalidf("backup target %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, translateError("backup", err)
	}

	start := time.Now()
	ctx, span := telemetry.StartStoreSpan(ctx, "backup", string(s.cfg.Type))
	defer span.End()

	result := &BackupResult{Path: path, Tables: len(s.schema)}
	switch s.cfg.Type {
	case DatabaseTypeSQLite:
		result.Format = BackupFormatSQLite
		err = db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error
	case DatabaseTypePostgres:
		result.Format = BackupFormatCSVTar
		err = s.copyTablesToTar(ctx, path)
	default:
		err = errBackupUnsupported
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		s.observe("backup", start, err)
		_ = os.Remove(path)
		return nil, translateError("backup", err)
	}

	if info, err := os.Stat(path); err == nil {
		result.SizeBytes = info.Size()
	}
	result.Duration = time.Since(start)
	s.observe("backup", start, nil)

	s.log.Info("Database backup written",
		logger.KeyPath, path,
		logger.KeySize, result.SizeBytes,
		logger.KeyDurationMs, logger.Duration(start))
	return result, nil
}

// copyTablesToTar streams every table through COPY TO STDOUT on one pgx
// connection inside a repeatable-read transaction.
func (s *Store) copyTablesToTar(ctx context.Context, path string) (err error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(f)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	tables := queryableTables()
	return conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected postgres driver connection %T", driverConn)
		}
		pgConn := sc.Conn()

		tx, err := pgConn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		for _, table := range tables {
			if _, ok := s.schema[table]; !ok {
				continue
			}
			var buf bytes.Buffer
			sql := fmt.Sprintf("COPY %s TO STDOUT (FORMAT csv, HEADER true)", pgx.Identifier{table}.Sanitize())
			if _, err := tx.Conn().PgConn().CopyTo(ctx, &buf, sql); err != nil {
				return fmt.Errorf("copy %s: %w", table, err)
			}
			hdr := &tar.Header{
				Name:    table + ".csv",
				Mode:    0600,
				Size:    int64(buf.Len()),
				ModTime: time.Now(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			if _, err := buf.WriteTo(tw); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
}
