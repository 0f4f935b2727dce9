// Package state implements named key/value components backed by BadgerDB.
// Each component owns its own database and follows the lifecycle contract
// of the component registry: Initialize opens it, Destroy closes it.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// Metrics receives state store instrumentation. A nil Metrics disables
// collection.
type Metrics interface {
	ObserveOperation(store, operation string, duration time.Duration, err error)
	SetKeys(store string, count int)
}

// Store is a badger-backed key/value component. Values are stored as JSON.
type Store struct {
	name string
	cfg  Config

	mu sync.RWMutex
	db *badgerdb.DB

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

// New creates a closed store named name. Call Initialize to open it.
func New(name string, cfg Config, opts ...Option) *Store {
	s := &Store{name: name, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrDefault(s.log)
	s.cfg.ApplyDefaults()
	return s
}

// NewDefaults creates one store per entry of DefaultNames.
func NewDefaults(cfg Config, opts ...Option) []*Store {
	stores := make([]*Store, len(DefaultNames))
	for i, name := range DefaultNames {
		stores[i] = New(name, cfg, opts...)
	}
	return stores
}

// Name returns the component name.
func (s *Store) Name() string {
	return s.name
}

// Path returns the on-disk directory, or "" for an in-memory store.
func (s *Store) Path() string {
	if s.cfg.InMemory {
		return ""
	}
	return filepath.Join(s.cfg.Dir, s.name)
}

// Initialize opens the database. Calling it on an open store is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return dberrors.NewInitializationError(err, fmt.Sprintf("state store %q", s.name))
	}

	opts := badgerdb.DefaultOptions(s.Path()).
		WithInMemory(s.cfg.InMemory).
		WithSyncWrites(s.cfg.SyncWrites).
		WithValueLogFileSize(s.cfg.ValueLogFileSize.Int64()).
		WithLogger(badgerLogger{log: s.log, name: s.name})

	db, err := badgerdb.Open(opts)
	if err != nil {
		return dberrors.NewInitializationError(err, fmt.Sprintf("open state store %q", s.name))
	}
	s.db = db

	s.log.Debug("State store opened", logger.KeyComponent, s.name, logger.KeyPath, s.Path(), "in_memory", s.cfg.InMemory)
	return nil
}

// Destroy closes the database. Calling it on a closed store is a no-op.
func (s *Store) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close state store %q: %w", s.name, err)
	}
	return nil
}

// IsInitialized reports whether the database is open.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Get decodes the value stored under key into v. A missing key returns a
// NotFound error.
func (s *Store) Get(ctx context.Context, key string, v any) error {
	return s.view(ctx, "get", func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return dberrors.NewNotFoundError(s.name+" key", key)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, v); err != nil {
				return fmt.Errorf("decode %q: %w", key, err)
			}
			return nil
		})
	})
}

// Set stores v under key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	if key == "" {
		return dberrors.NewInvalidArgumentError("state key must not be empty")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return dberrors.NewInvalidArgumentError("encode %q: %v", key, err)
	}
	return s.update(ctx, "set", func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.update(ctx, "delete", func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Keys returns the keys starting with prefix, sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.view(ctx, "keys", func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if len(keys)%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	if s.metrics != nil && prefix == "" {
		s.metrics.SetKeys(s.name, len(keys))
	}
	return keys, nil
}

// Snapshot returns every entry as raw JSON.
func (s *Store) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)
	err := s.view(ctx, "snapshot", func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.KeyCopy(nil))] = json.RawMessage(val)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Healthcheck verifies the database can serve a read transaction.
func (s *Store) Healthcheck(ctx context.Context) error {
	return s.view(ctx, "healthcheck", func(*badgerdb.Txn) error { return nil })
}

func (s *Store) view(ctx context.Context, op string, fn func(txn *badgerdb.Txn) error) error {
	return s.do(ctx, op, func(db *badgerdb.DB) error { return db.View(fn) })
}

func (s *Store) update(ctx context.Context, op string, fn func(txn *badgerdb.Txn) error) error {
	return s.do(ctx, op, func(db *badgerdb.DB) error { return db.Update(fn) })
}

func (s *Store) do(ctx context.Context, op string, fn func(db *badgerdb.DB) error) (err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveOperation(s.name, op, time.Since(start), err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return dberrors.NewNotReadyError(fmt.Sprintf("state %s.%s", s.name, op))
	}
	return fn(s.db)
}

// badgerLogger routes badger's internal logging through the component
// logger. Info and debug chatter is demoted to debug.
type badgerLogger struct {
	log  logger.Logger
	name string
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error("badger: "+trimNewline(fmt.Sprintf(format, args...)), logger.KeyComponent, l.name)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn("badger: "+trimNewline(fmt.Sprintf(format, args...)), logger.KeyComponent, l.name)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug("badger: "+trimNewline(fmt.Sprintf(format, args...)), logger.KeyComponent, l.name)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug("badger: "+trimNewline(fmt.Sprintf(format, args...)), logger.KeyComponent, l.name)
}

func trimNewline(s string) string {
	return strings.TrimRight(s, "\r\n")
}
