package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNamesMatchModels(t *testing.T) {
	names := TableNames()
	require.Len(t, names, len(AllModels()))
	assert.Equal(t, []string{"users", "projects", "sites", "photos"}, names)
	assert.Equal(t, "schema_migrations", SchemaMigration{}.TableName())
}

func TestBeforeCreateAssignsID(t *testing.T) {
	u := &User{Username: "alice"}
	require.NoError(t, u.BeforeCreate(nil))
	_, err := uuid.Parse(u.ID)
	assert.NoError(t, err)

	keep := &Photo{ID: "fixed"}
	require.NoError(t, keep.BeforeCreate(nil))
	assert.Equal(t, "fixed", keep.ID)
}

func TestProjectDefaults(t *testing.T) {
	p := &Project{Name: "bridge survey"}
	require.NoError(t, p.BeforeCreate(nil))
	assert.Equal(t, ProjectActive, p.Status)
	assert.True(t, p.Status.IsValid())
	assert.False(t, ProjectStatus("deleted").IsValid())
}

func TestUserDisplayName(t *testing.T) {
	u := &User{Username: "alice"}
	assert.Equal(t, "alice", u.GetDisplayName())
	u.DisplayName = "Alice"
	assert.Equal(t, "Alice", u.GetDisplayName())
}
