package state

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/bytesize"
	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

type themeSettings struct {
	Mode   string `json:"mode"`
	Accent string `json:"accent"`
}

func newMemoryStore(t *testing.T, name string, opts ...Option) *Store {
	t.Helper()
	s := New(name, Config{InMemory: true}, append([]Option{WithLogger(logger.Nop())}, opts...)...)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Destroy(context.Background()) })
	return s
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(Theme, Config{InMemory: true}, WithLogger(logger.Nop()))

	assert.False(t, s.IsInitialized())
	err := s.Set(ctx, "mode", "dark")
	assert.True(t, dberrors.IsNotReady(err))

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))
	assert.True(t, s.IsInitialized())
	assert.NoError(t, s.Healthcheck(ctx))

	require.NoError(t, s.Destroy(ctx))
	require.NoError(t, s.Destroy(ctx))
	assert.False(t, s.IsInitialized())
	assert.True(t, dberrors.IsNotReady(s.Healthcheck(ctx)))
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t, Theme)

	require.NoError(t, s.Set(ctx, "settings", themeSettings{Mode: "dark", Accent: "teal"}))

	var got themeSettings
	require.NoError(t, s.Get(ctx, "settings", &got))
	assert.Equal(t, themeSettings{Mode: "dark", Accent: "teal"}, got)

	require.NoError(t, s.Delete(ctx, "settings"))
	err := s.Get(ctx, "settings", &got)
	assert.True(t, dberrors.IsNotFound(err))

	assert.NoError(t, s.Delete(ctx, "never-existed"))
	assert.True(t, dberrors.IsKind(s.Set(ctx, "", 1), dberrors.InvalidArgument))
}

func TestKeysAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t, User)

	require.NoError(t, s.Set(ctx, "pref:units", "metric"))
	require.NoError(t, s.Set(ctx, "pref:lang", "en"))
	require.NoError(t, s.Set(ctx, "last_project", "p-1"))

	keys, err := s.Keys(ctx, "pref:")
	require.NoError(t, err)
	assert.Equal(t, []string{"pref:lang", "pref:units"}, keys)

	all, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"metric"`), snap["pref:units"])
	assert.Len(t, snap, 3)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Dir: t.TempDir(), SyncWrites: true}

	s := New(Global, cfg, WithLogger(logger.Nop()))
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Set(ctx, "onboarded", true))
	require.NoError(t, s.Destroy(ctx))

	require.NoError(t, s.Initialize(ctx))
	t.Cleanup(func() { _ = s.Destroy(ctx) })

	var onboarded bool
	require.NoError(t, s.Get(ctx, "onboarded", &onboarded))
	assert.True(t, onboarded)
	assert.DirExists(t, s.Path())
}

func TestConfig(t *testing.T) {
	t.Run("DefaultsUseDataDir", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
		var c Config
		c.ApplyDefaults()
		assert.Equal(t, "/tmp/xdg/fieldstore/state", c.Dir)
		assert.Equal(t, 64*bytesize.MiB, c.ValueLogFileSize)
		assert.NoError(t, c.Validate())
	})

	t.Run("InMemoryNeedsNoDir", func(t *testing.T) {
		c := Config{InMemory: true}
		c.ApplyDefaults()
		assert.Empty(t, c.Dir)
		assert.NoError(t, c.Validate())
	})

	t.Run("RejectsTinyValueLog", func(t *testing.T) {
		s := New(User, Config{InMemory: true, ValueLogFileSize: 512 * bytesize.KiB}, WithLogger(logger.Nop()))
		err := s.Initialize(context.Background())
		assert.True(t, dberrors.IsKind(err, dberrors.InitializationError))
		assert.False(t, s.IsInitialized())
	})
}

func TestNewDefaults(t *testing.T) {
	stores := NewDefaults(Config{InMemory: true})
	require.Len(t, stores, 3)
	names := make([]string, len(stores))
	for i, s := range stores {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"global", "theme", "user"}, names)
}

type recordingMetrics struct {
	mu   sync.Mutex
	ops  []string
	keys map[string]int
}

func (m *recordingMetrics) ObserveOperation(store, op string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, store+"."+op)
}

func (m *recordingMetrics) SetKeys(store string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]int{}
	}
	m.keys[store] = n
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := &recordingMetrics{}
	s := newMemoryStore(t, Global, WithMetrics(m))

	require.NoError(t, s.Set(ctx, "a", 1))
	_, err := s.Keys(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"global.set", "global.keys"}, m.ops)
	assert.Equal(t, 1, m.keys["global"])
}

func TestBadgerLoggerRoutesLevels(t *testing.T) {
	rec := logger.NewRecorder()
	l := badgerLogger{log: rec, name: User}

	l.Errorf("compaction failed: %s\n", "io")
	l.Warningf("slow write")
	l.Infof("replaying %d", 3)

	assert.True(t, rec.Has(logger.LevelError, "badger: compaction failed: io"))
	assert.True(t, rec.Has(logger.LevelWarn, "badger: slow write"))
	assert.True(t, rec.Has(logger.LevelDebug, "badger: replaying 3"))
	for _, e := range rec.Entries() {
		assert.Equal(t, User, e.Fields[logger.KeyComponent])
		assert.NotContains(t, e.Message, "\n")
	}
}
