// Package models contains the GORM models of the field survey schema.
package models

import "github.com/google/uuid"

// AllModels returns the domain models in dependency order.
func AllModels() []any {
	return []any{
		&User{},
		&Project{},
		&Site{},
		&Photo{},
	}
}

// TableNames returns the table name of every domain model, in the order of AllModels.
func TableNames() []string {
	return []string{
		User{}.TableName(),
		Project{}.TableName(),
		Site{}.TableName(),
		Photo{}.TableName(),
	}
}

// ensureID assigns a random UUID when id is empty.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
