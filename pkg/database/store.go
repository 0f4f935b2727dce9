package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"golang.org/x/sync/semaphore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/internal/telemetry"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// InitResult reports the outcome of one Initialize call.
type InitResult struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	TablesCreated     int    `json:"tables_created"`
	IndexesCreated    int    `json:"indexes_created"`
	SchemaVersion     int    `json:"schema_version"`
	MigrationsApplied int    `json:"migrations_applied"`
}

// Store is the transactional data-access component. It owns at most one
// database handle between Initialize and Close.
//
// The writer slot admits one transaction at a time. Initialize, Optimize and
// Close take the writer slot before holding the gate exclusively, so they
// never wait on the gate while a transaction callback runs. The gate is held
// shared by reads and transactions.
type Store struct {
	writer  *semaphore.Weighted
	current atomic.Pointer[Tx]
	gate    sync.RWMutex

	db            *gorm.DB
	cfg           Config
	schema        map[string]*tableSchema
	schemaVersion int
	initializedAt time.Time

	log     logger.Logger
	metrics Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logging collaborator.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an uninitialized store.
func NewStore(opts ...Option) *Store {
	s := &Store{writer: semaphore.NewWeighted(1)}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrDefault(s.log)
	return s
}

// Initialize opens the database and applies pending migrations. It is
// idempotent: a ready store returns a successful result with zero counts.
// Failures are reported in the result, never as a panic.
func (s *Store) Initialize(ctx context.Context, cfg *Config) (result InitResult) {
	if s.activeTx(ctx) != nil {
		// A running transaction holds the gate, so the store is open.
		return InitResult{Success: true, SchemaVersion: s.schemaVersion}
	}

	if err := s.lockWriter(ctx); err != nil {
		return InitResult{Error: fmt.Sprintf("initialize: %v", err)}
	}
	defer s.unlockWriter()

	s.gate.Lock()
	defer s.gate.Unlock()

	if s.db != nil {
		return InitResult{Success: true, SchemaVersion: s.schemaVersion}
	}

	start := time.Now()
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()

	ctx, span := telemetry.StartStoreSpan(ctx, "initialize", string(c.Type))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = InitResult{Error: fmt.Sprintf("panic during initialize: %v", r)}
		}
		if !result.Success {
			telemetry.RecordError(ctx, errors.New(result.Error))
			s.log.Error("Database initialization failed", logger.KeyDatabaseType, string(c.Type), logger.KeyError, result.Error)
			s.observe("initialize", start, dberrors.New(dberrors.InitializationError, result.Error))
		} else {
			s.observe("initialize", start, nil)
		}
	}()

	if err := c.Validate(); err != nil {
		return InitResult{Error: err.Error()}
	}

	db, err := open(&c)
	if err != nil {
		return InitResult{Error: err.Error()}
	}

	result, err = s.setup(ctx, db, &c)
	if err != nil {
		_ = closeDB(db)
		return InitResult{Error: err.Error()}
	}

	s.db = db
	s.cfg = c
	s.schemaVersion = result.SchemaVersion
	s.initializedAt = time.Now()
	if s.metrics != nil {
		s.metrics.SetReady(true)
	}

	s.log.Info("Database initialized",
		logger.KeyDatabaseType, string(c.Type),
		logger.KeyTables, result.TablesCreated,
		logger.KeyIndexes, result.IndexesCreated,
		logger.KeySchemaVersion, result.SchemaVersion,
		logger.KeyDurationMs, logger.Duration(start))
	return result
}

// setup runs migrations and builds the schema cache, counting the tables
// and indexes the run created.
func (s *Store) setup(ctx context.Context, db *gorm.DB, c *Config) (InitResult, error) {
	db = db.WithContext(ctx)

	tablesBefore, indexesBefore, err := countObjects(db, c.Type)
	if err != nil {
		return InitResult{}, fmt.Errorf("failed to inspect schema: %w", err)
	}

	applied, version, err := migrate(db, c.SchemaVersion, s.log)
	if err != nil {
		return InitResult{}, err
	}

	tablesAfter, indexesAfter, err := countObjects(db, c.Type)
	if err != nil {
		return InitResult{}, fmt.Errorf("failed to inspect schema: %w", err)
	}

	schema, err := loadSchema(db)
	if err != nil {
		return InitResult{}, fmt.Errorf("failed to load schema: %w", err)
	}
	s.schema = schema

	return InitResult{
		Success:           true,
		TablesCreated:     max(tablesAfter-tablesBefore, 0),
		IndexesCreated:    max(indexesAfter-indexesBefore, 0),
		SchemaVersion:     version,
		MigrationsApplied: applied,
	}, nil
}

// open creates the GORM handle for the configured backend and applies
// pool settings.
func open(c *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Type {
	case DatabaseTypeSQLite:
		if !c.SQLite.IsMemory() {
			if err := os.MkdirAll(filepath.Dir(c.SQLite.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(c.SQLite.DSN())
	case DatabaseTypePostgres:
		dialector = postgres.Open(c.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		_ = closeDB(db)
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(c.Pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.Pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(c.Pool.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// closeDB releases the connection pool behind db, falling back to the raw
// pool when it is not a *sql.DB.
func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		if c, ok := db.ConnPool.(io.Closer); ok {
			return c.Close()
		}
		return err
	}
	return sqlDB.Close()
}

// IsReady reports whether the store holds an open handle.
func (s *Store) IsReady() bool {
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.db != nil
}

// Type returns the configured backend, or "" before Initialize.
func (s *Store) Type() DatabaseType {
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.cfg.Type
}

// Config returns a copy of the configuration the store was opened with.
func (s *Store) Config() Config {
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.cfg
}

// Healthcheck pings the database.
func (s *Store) Healthcheck(ctx context.Context) error {
	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "healthcheck")
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return translateError("healthcheck", err)
	}
	return translateError("healthcheck", sqlDB.PingContext(ctx))
}

// Close releases the database handle once no transaction runs. Afterwards
// every operation returns NotReady until Initialize succeeds again. Closing a
// closed store is a no-op. Close fails with TransactionFailure when called
// from inside a transaction callback.
func (s *Store) Close() error {
	if s.activeTx(context.Background()) != nil {
		return dberrors.NewInTransactionError("close")
	}

	_ = s.lockWriter(context.Background())
	defer s.unlockWriter()

	s.gate.Lock()
	defer s.gate.Unlock()

	if s.db == nil {
		return nil
	}

	err := closeDB(s.db)
	s.db = nil
	s.schema = nil
	s.initializedAt = time.Time{}
	if s.metrics != nil {
		s.metrics.SetReady(false)
	}

	if err != nil {
		s.log.Warn("Database close reported an error", logger.KeyError, err)
		return dberrors.NewInternalError(err, "close database")
	}
	s.log.Info("Database closed", logger.KeyDatabaseType, string(s.cfg.Type))
	return nil
}

// readDB returns the handle for a read, or NotReady. It refuses calls made
// from inside a transaction callback, which would otherwise wait on a
// connection held by that transaction. The caller holds the gate.
func (s *Store) readDB(ctx context.Context, operation string) (*gorm.DB, error) {
	if s.db == nil {
		return nil, dberrors.NewNotReadyError(operation)
	}
	if s.activeTx(ctx) != nil {
		return nil, dberrors.NewInTransactionError(operation)
	}
	return s.db.WithContext(ctx), nil
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, time.Since(start), err)
	}
}
