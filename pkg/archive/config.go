package archive

import "fmt"

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Config configures the S3 archive that receives database backups.
type Config struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Region          string `mapstructure:"region" yaml:"region" json:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`

	// ForcePathStyle addresses buckets as endpoint/bucket. Implied by Endpoint.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style" json:"force_path_style"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Prefix == "" {
		c.Prefix = "backups/"
	}
}

// Validate checks an enabled archive has what it needs.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Bucket == "" {
		return fmt.Errorf("archive: bucket is required when enabled")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("archive: access_key_id and secret_access_key must be set together")
	}
	return nil
}
