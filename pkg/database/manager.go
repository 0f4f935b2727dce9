package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// Manager is the application-facing facade over one Store. Its Initialize
// reports success as a boolean and never panics.
type Manager struct {
	mu          sync.Mutex
	store       *Store
	initialized bool
	log         logger.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logging collaborator.
func WithManagerLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a facade over store. A nil store gets a default Store
// sharing the manager's logger.
func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.OrDefault(m.log)
	if store == nil {
		store = NewStore(WithLogger(m.log))
	}
	m.store = store
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// Initialize opens the store and reports whether it is usable. A second
// call after success returns true without touching the store, unless the
// store was closed directly, in which case it is opened again.
func (m *Manager) Initialize(ctx context.Context, cfg *Config) bool {
	return m.InitializeResult(ctx, cfg).OK
}

// InitializeResult is Initialize with the failure classified.
func (m *Manager) InitializeResult(ctx context.Context, cfg *Config) (res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		if m.store.IsReady() {
			m.log.Debug("Database manager already initialized")
			return Succeeded()
		}
		m.log.Warn("Database store was closed outside the manager, reopening")
		m.initialized = false
	}

	defer func() {
		if r := recover(); r != nil {
			err := dberrors.NewInitializationError(fmt.Errorf("panic: %v", r), "initialize database")
			m.log.Error("Database manager initialization panicked", logger.KeyError, err)
			res = Failed(err)
		}
	}()

	result := m.store.Initialize(ctx, cfg)
	if !result.Success {
		err := dberrors.New(dberrors.InitializationError, result.Error)
		m.log.Error("Database manager initialization failed", logger.KeyError, result.Error)
		return Failed(err)
	}

	m.initialized = true
	m.log.Info("Database manager initialized",
		logger.KeyTables, result.TablesCreated,
		logger.KeyIndexes, result.IndexesCreated,
		logger.KeySchemaVersion, result.SchemaVersion)
	return Succeeded()
}

// IsReady reports whether the facade was initialized and the store is open.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()
	return initialized && m.store.IsReady()
}

func (m *Manager) ensureReady(operation string) error {
	if !m.IsReady() {
		return dberrors.NewNotReadyError(operation)
	}
	return nil
}

// Stats returns store statistics, or NotReady before Initialize.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	if err := m.ensureReady("stats"); err != nil {
		return nil, err
	}
	return m.store.Stats(ctx)
}

// Optimize runs store maintenance, or returns NotReady before Initialize.
func (m *Manager) Optimize(ctx context.Context) error {
	if err := m.ensureReady("optimize"); err != nil {
		return err
	}
	return m.store.Optimize(ctx)
}

// Close closes the store. It returns NotReady when the facade was never
// initialized; afterwards Initialize may be called again.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return dberrors.NewNotReadyError("close")
	}
	err := m.store.Close()
	m.initialized = m.store.IsReady()
	if err != nil {
		m.log.Error("Database manager close failed", logger.KeyError, err)
		return err
	}
	m.log.Info("Database manager closed")
	return nil
}
