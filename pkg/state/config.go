package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/fieldstore/internal/bytesize"
)

// Default component names registered at startup.
const (
	Global = "global"
	Theme  = "theme"
	User   = "user"
)

// DefaultNames lists the state components every application registers.
var DefaultNames = []string{Global, Theme, User}

// Config configures the badger-backed state components.
type Config struct {
	// Dir is the parent directory; each component opens Dir/<name>.
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`

	// InMemory keeps all data in memory and ignores Dir.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory" json:"in_memory"`

	// SyncWrites fsyncs every write before returning.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes" json:"sync_writes"`

	// ValueLogFileSize caps each value log file.
	ValueLogFileSize bytesize.ByteSize `mapstructure:"value_log_file_size" yaml:"value_log_file_size" json:"value_log_file_size"`
}

// DefaultDir returns $XDG_DATA_HOME/fieldstore/state, falling back to
// ~/.local/share.
func DefaultDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "state")
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "fieldstore", "state")
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" && !c.InMemory {
		c.Dir = DefaultDir()
	}
	if c.ValueLogFileSize == 0 {
		c.ValueLogFileSize = 64 * bytesize.MiB
	}
}

// Validate checks the configuration after defaults.
func (c *Config) Validate() error {
	if !c.InMemory && c.Dir == "" {
		return fmt.Errorf("state: dir is required unless in_memory is set")
	}
	if c.ValueLogFileSize < bytesize.MiB {
		return fmt.Errorf("state: value_log_file_size must be at least 1MiB, got %s", c.ValueLogFileSize)
	}
	return nil
}
