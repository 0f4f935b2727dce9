package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/marmos91/fieldstore/pkg/database"
	"github.com/marmos91/fieldstore/pkg/state"
)

// sampleConfig is written by InitConfig. Values mirror ApplyDefaults.
var sampleConfig = template.Must(template.New("config").Parse(`# fieldstore configuration file
#
# Every key can be overridden with an environment variable:
#   FIELDSTORE_<SECTION>_<KEY>, e.g. FIELDSTORE_LOGGING_LEVEL=DEBUG

logging:
  level: INFO          # DEBUG, INFO, WARN, ERROR
  format: text         # text, json
  output: stdout       # stdout, stderr or a file path

telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: http://localhost:4040

shutdown_timeout: 30s

database:
  type: sqlite         # sqlite, postgres
  sqlite:
    path: {{ printf "%q" .SQLitePath }}
    journal_mode: WAL
    synchronous: NORMAL
    busy_timeout: 5s
    foreign_keys: true
    cache_size: 64Mi
  postgres:
    host: localhost
    port: 5432
    database: fieldstore
    user: fieldstore
    password: ""
    sslmode: disable
  pool:
    max_open_conns: 25
    max_idle_conns: 5
    conn_max_lifetime: 30m
  page_size: {{ .PageSize }}
  max_page_size: {{ .MaxPageSize }}

state:
  dir: {{ printf "%q" .StateDir }}
  in_memory: false
  sync_writes: false
  value_log_file_size: 64Mi

archive:
  enabled: false
  bucket: ""
  region: us-east-1
  prefix: backups/
  # endpoint: http://localhost:4566   # S3-compatible endpoint (MinIO, localstack)

api:
  enabled: true
  host: ""
  port: 8080
  read_timeout: 10s
  write_timeout: 30s
  idle_timeout: 60s
  request_timeout: 25s

metrics:
  enabled: false       # served on the API at /metrics

watch:
  enabled: true        # reload the logging section when this file changes
  debounce: 250ms
`))

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is kept unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	var buf bytes.Buffer
	err := sampleConfig.Execute(&buf, map[string]any{
		"SQLitePath":  database.DefaultSQLitePath(),
		"StateDir":    state.DefaultDir(),
		"PageSize":    database.DefaultPageSize,
		"MaxPageSize": database.DefaultMaxPageSize,
	})
	if err != nil {
		return fmt.Errorf("failed to render sample config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
