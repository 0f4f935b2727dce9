package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/bytesize"
	"github.com/marmos91/fieldstore/pkg/database"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
logging:
  level: debug

database:
  type: sqlite
  sqlite:
    path: "`+yamlSafePath(dir)+`/survey.db"
    cache_size: 16Mi
    busy_timeout: 2s

state:
  dir: "`+yamlSafePath(dir)+`/state"
  value_log_file_size: 32Mi

api:
  port: 9000
  read_timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, database.DatabaseTypeSQLite, cfg.Database.Type)
	assert.Equal(t, filepath.Join(dir, "survey.db"), filepath.FromSlash(cfg.Database.SQLite.Path))
	assert.Equal(t, 16*bytesize.MiB, cfg.Database.SQLite.CacheSize)
	assert.Equal(t, 2*time.Second, cfg.Database.SQLite.BusyTimeout)
	assert.Equal(t, "WAL", cfg.Database.SQLite.JournalMode)
	assert.Equal(t, database.DefaultPageSize, cfg.Database.PageSize)

	assert.Equal(t, 32*bytesize.MiB, cfg.State.ValueLogFileSize)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 3*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.API.WriteTimeout)
	assert.True(t, cfg.API.IsEnabled())
	assert.Equal(t, "us-east-1", cfg.Archive.Region)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, database.DatabaseTypeSQLite, cfg.Database.Type)
	assert.Equal(t, database.DefaultSQLitePath(), cfg.Database.SQLite.Path)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("FIELDSTORE_LOGGING_LEVEL", "warn")
	t.Setenv("FIELDSTORE_API_ENABLED", "false")
	t.Setenv("FIELDSTORE_API_PORT", "9191")
	t.Setenv("FIELDSTORE_DATABASE_SQLITE_CACHE_SIZE", "8Mi")
	t.Setenv("FIELDSTORE_ARCHIVE_BUCKET", "from-env")
	t.Setenv("FIELDSTORE_TELEMETRY_PROFILING_PROFILE_TYPES", "cpu,goroutines")

	t.Run("WithoutFile", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "WARN", cfg.Logging.Level)
		assert.False(t, cfg.API.IsEnabled())
		assert.Equal(t, 9191, cfg.API.Port)
		assert.Equal(t, 8*bytesize.MiB, cfg.Database.SQLite.CacheSize)
		assert.Equal(t, "from-env", cfg.Archive.Bucket)
		assert.Equal(t, []string{"cpu", "goroutines"}, cfg.Telemetry.Profiling.ProfileTypes)
	})

	t.Run("OverFile", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "logging:\n  level: ERROR\napi:\n  port: 7000\n"))
		require.NoError(t, err)

		assert.Equal(t, "WARN", cfg.Logging.Level)
		assert.Equal(t, 9191, cfg.API.Port)
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  level: INFO\n  invalid yaml here [[[\n"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")

	_, err = Load(writeConfig(t, "archive:\n  enabled: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestMustLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	_, err := MustLoad("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fieldstore init")

	_, err = MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fieldstore init --config")

	path, err := InitConfig(false)
	require.NoError(t, err)
	cfg, err := MustLoad("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, path, GetDefaultConfigPath())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "DEBUG"
	cfg.Database.SQLite.Path = filepath.Join(dir, "survey.db")
	cfg.State.Dir = filepath.Join(dir, "state")
	cfg.State.ValueLogFileSize = 128 * bytesize.MiB
	cfg.API.Port = 9999
	cfg.ShutdownTimeout = 45 * time.Second

	path := filepath.Join(dir, "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", loaded.Logging.Level)
	assert.Equal(t, cfg.Database.SQLite.Path, loaded.Database.SQLite.Path)
	assert.Equal(t, 128*bytesize.MiB, loaded.State.ValueLogFileSize)
	assert.Equal(t, 9999, loaded.API.Port)
	assert.Equal(t, 45*time.Second, loaded.ShutdownTimeout)
}

func TestGetDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "fieldstore"), GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "fieldstore", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, DefaultConfigExists())
}
