package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/database/models"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// MigrationStatus describes a known migration and whether it has been applied.
type MigrationStatus struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func createTable(model any) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		return tx.Migrator().CreateTable(model)
	}
}

// migrations lists every schema change in version order. Applied entries
// must never be edited; add a new version instead.
var migrations = []Migration{
	{Version: 1, Name: "create_users", Up: createTable(&models.User{})},
	{Version: 2, Name: "create_projects", Up: createTable(&models.Project{})},
	{Version: 3, Name: "create_sites", Up: createTable(&models.Site{})},
	{Version: 4, Name: "create_photos", Up: createTable(&models.Photo{})},
}

// LatestVersion returns the highest known migration version.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// migrate applies pending migrations up to target (0 means all). Each
// migration runs in its own transaction together with its ledger row, so
// a failure leaves earlier migrations committed and the failing one absent.
func migrate(db *gorm.DB, target int, log logger.Logger) (applied int, version int, err error) {
	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return 0, 0, fmt.Errorf("creating migrations table: %w", err)
	}

	done, err := appliedMigrations(db)
	if err != nil {
		return 0, 0, err
	}
	for v := range done {
		version = max(version, v)
	}

	for _, m := range migrations {
		if target > 0 && m.Version > target {
			break
		}
		if _, ok := done[m.Version]; ok {
			continue
		}

		start := time.Now()
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return applied, version, fmt.Errorf("applying migration %d (%s): %w", m.Version, m.Name, err)
		}

		applied++
		version = max(version, m.Version)
		log.Debug("Applied migration",
			logger.KeyMigration, m.Name,
			logger.KeySchemaVersion, m.Version,
			logger.KeyDurationMs, logger.Duration(start))
	}

	return applied, version, nil
}

func appliedMigrations(db *gorm.DB) (map[int]models.SchemaMigration, error) {
	var rows []models.SchemaMigration
	if err := db.Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}
	out := make(map[int]models.SchemaMigration, len(rows))
	for _, r := range rows {
		out[r.Version] = r
	}
	return out, nil
}

// Migrations reports every known migration and whether it is applied.
func (s *Store) Migrations(ctx context.Context) ([]MigrationStatus, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "migrations")
	if err != nil {
		return nil, err
	}

	done, err := appliedMigrations(db)
	if err != nil {
		return nil, translateError("migrations", err)
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		st := MigrationStatus{Version: m.Version, Name: m.Name}
		if rec, ok := done[m.Version]; ok {
			at := rec.AppliedAt
			st.Applied = true
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// SchemaVersion returns the highest applied migration version, or 0 before Initialize.
func (s *Store) SchemaVersion() int {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.db == nil {
		return 0
	}
	return s.schemaVersion
}
