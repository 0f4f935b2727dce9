package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/fieldstore/internal/bytesize"
)

// DatabaseType defines the supported database backends.
type DatabaseType string

const (
	// DatabaseTypeSQLite uses an embedded SQLite file (default).
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres uses a PostgreSQL server.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// MemoryPath selects an in-memory SQLite database.
const MemoryPath = ":memory:"

const (
	DefaultPageSize    = 20
	DefaultMaxPageSize = 1000
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	// Default: $XDG_DATA_HOME/fieldstore/fieldstore.db
	Path string `mapstructure:"path" yaml:"path" json:"path"`

	JournalMode string            `mapstructure:"journal_mode" yaml:"journal_mode" json:"journal_mode" validate:"omitempty,oneof=WAL DELETE TRUNCATE PERSIST MEMORY OFF"`
	Synchronous string            `mapstructure:"synchronous" yaml:"synchronous" json:"synchronous" validate:"omitempty,oneof=OFF NORMAL FULL EXTRA"`
	BusyTimeout time.Duration     `mapstructure:"busy_timeout" yaml:"busy_timeout" json:"busy_timeout" validate:"gte=0"`
	ForeignKeys *bool             `mapstructure:"foreign_keys" yaml:"foreign_keys" json:"foreign_keys"`
	CacheSize   bytesize.ByteSize `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size"`
}

// IsMemory reports whether the database lives in memory only.
func (c *SQLiteConfig) IsMemory() bool {
	return c.Path == MemoryPath || strings.Contains(c.Path, "mode=memory")
}

// DSN returns the glebarez/sqlite connection string with pragmas applied
// on every new connection.
func (c *SQLiteConfig) DSN() string {
	pragmas := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeout.Milliseconds()),
	}
	if c.JournalMode != "" && !c.IsMemory() {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=synchronous(%s)", c.Synchronous))
	}
	if c.ForeignKeys == nil || *c.ForeignKeys {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if c.CacheSize > 0 {
		// Negative cache_size is expressed in KiB.
		pragmas = append(pragmas, fmt.Sprintf("_pragma=cache_size(-%d)", c.CacheSize.Uint64()/1024))
	}

	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	return c.Path + sep + strings.Join(pragmas, "&")
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host        string `mapstructure:"host" yaml:"host" json:"host"`
	Port        int    `mapstructure:"port" yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`
	Database    string `mapstructure:"database" yaml:"database" json:"database"`
	User        string `mapstructure:"user" yaml:"user" json:"user"`
	Password    string `mapstructure:"password" yaml:"password" json:"-"`
	SSLMode     string `mapstructure:"sslmode" yaml:"sslmode" json:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	SSLRootCert string `mapstructure:"sslrootcert" yaml:"sslrootcert" json:"sslrootcert,omitempty"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)

	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	if c.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", c.SSLRootCert)
	}

	return dsn
}

// PoolConfig controls the database/sql connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" json:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime" json:"conn_max_lifetime" validate:"gte=0"`
}

// Config contains database configuration.
type Config struct {
	Type DatabaseType `mapstructure:"type" yaml:"type" json:"type" validate:"omitempty,oneof=sqlite postgres"`

	// SchemaVersion stops migrations at the given version. Zero applies all.
	SchemaVersion int `mapstructure:"schema_version" yaml:"schema_version" json:"schema_version" validate:"gte=0"`

	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite" json:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres" json:"postgres"`
	Pool     PoolConfig     `mapstructure:"pool" yaml:"pool" json:"pool"`

	// PageSize is used when a pagination request leaves it unset.
	PageSize    int `mapstructure:"page_size" yaml:"page_size" json:"page_size" validate:"gte=0"`
	MaxPageSize int `mapstructure:"max_page_size" yaml:"max_page_size" json:"max_page_size" validate:"gte=0"`
}

// DefaultSQLitePath returns $XDG_DATA_HOME/fieldstore/fieldstore.db,
// falling back to ~/.local/share.
func DefaultSQLitePath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "fieldstore", "fieldstore.db")
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}

	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = DefaultSQLitePath()
		}
		if c.SQLite.JournalMode == "" {
			c.SQLite.JournalMode = "WAL"
		}
		if c.SQLite.Synchronous == "" {
			c.SQLite.Synchronous = "NORMAL"
		}
		if c.SQLite.BusyTimeout == 0 {
			c.SQLite.BusyTimeout = 5 * time.Second
		}
		if c.SQLite.ForeignKeys == nil {
			on := true
			c.SQLite.ForeignKeys = &on
		}
		if c.SQLite.CacheSize == 0 {
			c.SQLite.CacheSize = 64 * bytesize.MiB
		}
	case DatabaseTypePostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
	}

	if c.Pool.MaxOpenConns == 0 {
		c.Pool.MaxOpenConns = 25
	}
	if c.Pool.MaxIdleConns == 0 {
		c.Pool.MaxIdleConns = 5
	}
	if c.Pool.ConnMaxLifetime == 0 {
		c.Pool.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Type == DatabaseTypeSQLite && c.SQLite.IsMemory() {
		// Every connection to ":memory:" is a separate database.
		c.Pool.MaxOpenConns = 1
		c.Pool.MaxIdleConns = 1
		c.Pool.ConnMaxLifetime = 0
	}

	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxPageSize == 0 {
		c.MaxPageSize = DefaultMaxPageSize
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	if c.PageSize > c.MaxPageSize {
		return fmt.Errorf("page_size %d exceeds max_page_size %d", c.PageSize, c.MaxPageSize)
	}
	return nil
}
