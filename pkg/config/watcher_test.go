package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/logger"
)

func TestWatcher_Reload(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Cleanup(func() {
		logger.SetLevel("INFO")
		logger.SetFormat("text")
	})

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	rec := logger.NewRecorder()
	w := NewWatcher(path, cfg.Logging, 20*time.Millisecond,
		WithWatcherLogger(rec),
		OnReload(func(c *Config) { reloaded <- c }),
	)

	ctx := context.Background()
	require.NoError(t, w.Initialize(ctx))
	t.Cleanup(func() { _ = w.Destroy(context.Background()) })
	assert.True(t, w.IsInitialized())
	assert.True(t, rec.Has(logger.LevelInfo, "Watching configuration file"))

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: DEBUG\n  format: json\n"), 0o600))

	select {
	case got := <-reloaded:
		assert.Equal(t, "DEBUG", got.Logging.Level)
		assert.Equal(t, "json", got.Logging.Format)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.True(t, rec.Has(logger.LevelInfo, "Configuration reloaded"))

	rec.Reset()
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: LOUD\n"), 0o600))
	assert.Eventually(t, func() bool {
		return rec.Has(logger.LevelWarn, "Config reload failed")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Destroy(ctx))
	assert.False(t, w.IsInitialized())
	require.NoError(t, w.Destroy(ctx))
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0o600))

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"}, 10*time.Millisecond,
		WithWatcherLogger(logger.Nop()),
		OnReload(func(c *Config) { reloaded <- c }),
	)
	require.NoError(t, w.Initialize(context.Background()))
	t.Cleanup(func() { _ = w.Destroy(context.Background()) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("unexpected reload for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing", "config.yaml"), LoggingConfig{}, time.Millisecond,
		WithWatcherLogger(logger.Nop()))

	err := w.Initialize(context.Background())
	require.Error(t, err)
	assert.False(t, w.IsInitialized())
}
