package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/database/models"
)

func sqliteConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "fieldstore.db")},
	}
}

// newTestStore opens a migrated SQLite store in a temporary directory.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := NewStore(append([]Option{WithLogger(logger.Nop())}, opts...)...)
	res := s.Initialize(context.Background(), sqliteConfig(t))
	require.True(t, res.Success, res.Error)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedUsers inserts users user00..user<n-1> in one transaction.
func seedUsers(t *testing.T, s *Store, n int) {
	t.Helper()
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{Username: fmt.Sprintf("user%02d", i)}
	}
	require.NoError(t, s.RunTransaction(context.Background(), func(tx *Tx) error {
		return tx.Create(&users)
	}))
}

// newMemoryStore opens a migrated in-memory SQLite store.
func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(WithLogger(logger.Nop()))
	res := s.Initialize(context.Background(), &Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: MemoryPath}})
	require.True(t, res.Success, res.Error)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// within runs fn and fails the test when it has not returned after d.
func within(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("call did not return within %s", d)
	}
}

func countUsers(t *testing.T, s *Store) int64 {
	t.Helper()
	n, err := s.Count(context.Background(), QueryParams{Table: "users"})
	require.NoError(t, err)
	return n
}

type observation struct {
	operation string
	err       error
}

// fakeMetrics records what the store reports.
type fakeMetrics struct {
	mu           sync.Mutex
	operations   []observation
	transactions map[string]int
	ready        bool
	open         int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{transactions: make(map[string]int)}
}

func (m *fakeMetrics) ObserveOperation(operation string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, observation{operation, err})
}

func (m *fakeMetrics) RecordTransaction(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[outcome]++
}

func (m *fakeMetrics) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

func (m *fakeMetrics) SetPoolStats(open, _, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = open
}

func (m *fakeMetrics) txCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions[outcome]
}

func (m *fakeMetrics) isReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// gatedMetrics blocks ObserveOperation for one operation until release is
// closed, keeping that operation inside the store meanwhile.
type gatedMetrics struct {
	*fakeMetrics
	operation string
	entered   chan struct{}
	release   chan struct{}
	once      sync.Once
}

func newGatedMetrics(operation string) *gatedMetrics {
	return &gatedMetrics{
		fakeMetrics: newFakeMetrics(),
		operation:   operation,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (m *gatedMetrics) ObserveOperation(operation string, d time.Duration, err error) {
	if operation == m.operation {
		m.once.Do(func() { close(m.entered) })
		<-m.release
	}
	m.fakeMetrics.ObserveOperation(operation, d, err)
}
