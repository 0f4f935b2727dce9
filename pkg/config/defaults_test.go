package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/bytesize"
	"github.com/marmos91/fieldstore/pkg/database"
)

func TestApplyDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, "http://localhost:4040", cfg.Telemetry.Profiling.Endpoint)
	assert.Contains(t, cfg.Telemetry.Profiling.ProfileTypes, "cpu")

	assert.Equal(t, database.DatabaseTypeSQLite, cfg.Database.Type)
	assert.Equal(t, "NORMAL", cfg.Database.SQLite.Synchronous)
	assert.Equal(t, 25, cfg.Database.Pool.MaxOpenConns)
	assert.Equal(t, 64*bytesize.MiB, cfg.State.ValueLogFileSize)
	assert.NotEmpty(t, cfg.State.Dir)
	assert.Equal(t, "backups/", cfg.Archive.Prefix)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "warn", Format: "JSON", Output: "stderr"},
		ShutdownTimeout: time.Minute,
		Telemetry:       TelemetryConfig{SampleRate: 0.25},
		Watch:           WatchConfig{Debounce: time.Second},
	}
	cfg.API.Port = 9000
	cfg.Database.Type = database.DatabaseTypePostgres
	cfg.Database.Postgres.Port = 6543

	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 6543, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg := GetDefaultConfig()
	require.NoError(t, Validate(cfg))
}
