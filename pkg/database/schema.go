package database

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/marmos91/fieldstore/pkg/database/models"
)

// tableSchema is the set of columns of a queryable table with their types.
type tableSchema struct {
	name    string
	columns map[string]schema.DataType
	ordered []string
	// key orders pages when the caller gives no ordering.
	key string
}

func (t *tableSchema) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

func queryableModels() []any {
	return append(models.AllModels(), &models.SchemaMigration{})
}

// queryableTables are the tables Query and Paginate may address.
func queryableTables() []string {
	return append(models.TableNames(), models.SchemaMigration{}.TableName())
}

// loadSchema builds the column sets of the queryable tables from the GORM
// models, keeping only tables that exist at the current schema version.
func loadSchema(db *gorm.DB) (map[string]*tableSchema, error) {
	out := make(map[string]*tableSchema)
	migrator := db.Migrator()
	for _, model := range queryableModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parsing model %T: %w", model, err)
		}
		table := stmt.Schema.Table
		if !migrator.HasTable(table) {
			continue
		}

		ts := &tableSchema{
			name:    table,
			columns: make(map[string]schema.DataType, len(stmt.Schema.DBNames)),
			ordered: append([]string(nil), stmt.Schema.DBNames...),
		}
		for _, c := range stmt.Schema.DBNames {
			ts.columns[c] = stmt.Schema.FieldsByDBName[c].DataType
		}
		if pk := stmt.Schema.PrioritizedPrimaryField; pk != nil {
			ts.key = pk.DBName
		} else if len(ts.ordered) > 0 {
			ts.key = ts.ordered[0]
		}
		out[table] = ts
	}
	return out, nil
}

// Tables returns the names of the queryable tables, sorted.
func (s *Store) Tables() []string {
	s.gate.RLock()
	defer s.gate.RUnlock()

	names := make([]string, 0, len(s.schema))
	for name := range s.schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// countObjects returns the number of user tables and indexes.
func countObjects(db *gorm.DB, dbType DatabaseType) (tables, indexes int, err error) {
	var tableSQL, indexSQL string
	switch dbType {
	case DatabaseTypeSQLite:
		tableSQL = "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"
		indexSQL = "SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name NOT LIKE 'sqlite_%'"
	case DatabaseTypePostgres:
		tableSQL = "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'"
		indexSQL = "SELECT count(*) FROM pg_indexes WHERE schemaname = current_schema()"
	default:
		return 0, 0, fmt.Errorf("unsupported database type: %s", dbType)
	}

	var t, i int64
	if err := db.Raw(tableSQL).Scan(&t).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Raw(indexSQL).Scan(&i).Error; err != nil {
		return 0, 0, err
	}
	return int(t), int(i), nil
}
