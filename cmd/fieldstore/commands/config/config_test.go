package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/pkg/config"
	"github.com/marmos91/fieldstore/pkg/database"
)

func TestConfigWarnings(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg := config.GetDefaultConfig()
	warnings := configWarnings(cfg)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "archive disabled")

	cfg.Archive.Enabled = true
	cfg.Archive.Bucket = "survey-backups"
	cfg.Database.SQLite.Path = database.MemoryPath
	cfg.State.InMemory = true
	warnings = configWarnings(cfg)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "SQLite runs in memory")
	assert.Contains(t, warnings[1], "State stores run in memory")
}

func TestArchiveSummary(t *testing.T) {
	cfg := config.GetDefaultConfig()
	assert.Equal(t, "disabled", archiveSummary(cfg))

	cfg.Archive.Enabled = true
	cfg.Archive.Bucket = "survey-backups"
	cfg.Archive.Prefix = "backups/"
	assert.Equal(t, "s3://survey-backups/backups/", archiveSummary(cfg))
}

func TestRedactSecrets(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Database.Postgres.Password = "s3cret"
	cfg.Archive.SecretAccessKey = "key"

	redactSecrets(cfg)

	assert.Equal(t, redacted, cfg.Database.Postgres.Password)
	assert.Equal(t, redacted, cfg.Archive.SecretAccessKey)
	assert.Empty(t, cfg.Archive.AccessKeyID)
}

func TestGenerateSchema(t *testing.T) {
	data, err := generateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "fieldstore Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "database", "state", "archive", "api", "shutdown_timeout"} {
		assert.Contains(t, props, key)
	}
}
