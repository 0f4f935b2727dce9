package database

import (
	"context"
	"time"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/internal/telemetry"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// TableStats is the row count of one table.
type TableStats struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Stats describes the open database.
type Stats struct {
	Type            DatabaseType `json:"type"`
	SchemaVersion   int          `json:"schema_version"`
	Tables          []TableStats `json:"tables"`
	IndexCount      int          `json:"index_count"`
	SizeBytes       int64        `json:"size_bytes"`
	OpenConnections int          `json:"open_connections"`
	InUse           int          `json:"in_use"`
	Idle            int          `json:"idle"`
	InitializedAt   time.Time    `json:"initialized_at"`
}

// Stats reports table sizes, index count, on-disk size and pool usage.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "stats")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stats := &Stats{
		Type:          s.cfg.Type,
		SchemaVersion: s.schemaVersion,
		InitializedAt: s.initializedAt,
	}

	for _, name := range queryableTables() {
		if _, ok := s.schema[name]; !ok {
			continue
		}
		var n int64
		if err := db.Table(name).Count(&n).Error; err != nil {
			s.observe("stats", start, err)
			return nil, translateError("stats", err)
		}
		stats.Tables = append(stats.Tables, TableStats{Name: name, Rows: n})
	}

	if _, stats.IndexCount, err = countObjects(db, s.cfg.Type); err != nil {
		s.observe("stats", start, err)
		return nil, translateError("stats", err)
	}

	switch s.cfg.Type {
	case DatabaseTypeSQLite:
		err = db.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&stats.SizeBytes).Error
	case DatabaseTypePostgres:
		err = db.Raw("SELECT pg_database_size(current_database())").Scan(&stats.SizeBytes).Error
	}
	if err != nil {
		s.observe("stats", start, err)
		return nil, translateError("stats", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		ps := sqlDB.Stats()
		stats.OpenConnections, stats.InUse, stats.Idle = ps.OpenConnections, ps.InUse, ps.Idle
		if s.metrics != nil {
			s.metrics.SetPoolStats(ps.OpenConnections, ps.InUse, ps.Idle)
		}
	}

	s.observe("stats", start, nil)
	return stats, nil
}

// Optimize runs the engine's maintenance statements. It waits for the
// running transaction to finish and then holds the store exclusively, so no
// query or transaction runs meanwhile. Called from inside a transaction
// callback it fails with TransactionFailure.
func (s *Store) Optimize(ctx context.Context) error {
	if s.activeTx(ctx) != nil {
		return dberrors.NewInTransactionError("optimize")
	}

	if err := s.lockWriter(ctx); err != nil {
		return dberrors.NewTransactionError(err)
	}
	defer s.unlockWriter()

	s.gate.Lock()
	defer s.gate.Unlock()

	if s.db == nil {
		return dberrors.NewNotReadyError("optimize")
	}

	start := time.Now()
	ctx, span := telemetry.StartStoreSpan(ctx, "optimize", string(s.cfg.Type))
	defer span.End()

	var statements []string
	switch s.cfg.Type {
	case DatabaseTypeSQLite:
		statements = []string{"PRAGMA optimize", "ANALYZE", "VACUUM"}
		if !s.cfg.SQLite.IsMemory() {
			statements = append(statements, "PRAGMA wal_checkpoint(TRUNCATE)")
		}
	case DatabaseTypePostgres:
		statements = []string{"VACUUM ANALYZE"}
	}

	db := s.db.WithContext(ctx)
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			telemetry.RecordError(ctx, err)
			s.observe("optimize", start, err)
			return translateError("optimize", err)
		}
	}

	s.observe("optimize", start, nil)
	s.log.Info("Database optimized", logger.KeyDatabaseType, string(s.cfg.Type), logger.KeyDurationMs, logger.Duration(start))
	return nil
}
