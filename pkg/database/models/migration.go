package models

import "time"

// SchemaMigration records one applied schema migration.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	AppliedAt time.Time `gorm:"not null" json:"applied_at"`
}

// TableName returns the table name for SchemaMigration.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
