package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/database"
	"github.com/marmos91/fieldstore/pkg/lifecycle"
)

// newTestManager opens a migrated SQLite database in a temporary directory.
func newTestManager(t *testing.T) *database.Manager {
	t.Helper()
	m := database.NewManager(nil, database.WithManagerLogger(logger.Nop()))
	ok := m.Initialize(context.Background(), &database.Config{
		Type:   database.DatabaseTypeSQLite,
		SQLite: database.SQLiteConfig{Path: filepath.Join(t.TempDir(), "fieldstore.db")},
	})
	require.True(t, ok)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTestRegistry(t *testing.T, components map[string]lifecycle.Component) *lifecycle.Registry {
	t.Helper()
	reg := lifecycle.NewRegistry(lifecycle.WithLogger(logger.Nop()))
	for name, c := range components {
		require.True(t, reg.Register(name, c))
	}
	return reg
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

type probedComponent struct {
	*lifecycle.FuncComponent
	err error
}

func (p *probedComponent) Healthcheck(context.Context) error { return p.err }

func TestLiveness_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil, nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fieldstore", data["service"])
	assert.Contains(t, data, "started_at")
	assert.Contains(t, data, "uptime")
}

func TestReadiness_NoDatabase_Returns503(t *testing.T) {
	handler := NewHealthHandler(lifecycle.NewRegistry(lifecycle.WithLogger(logger.Nop())), nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "database not ready", resp.Error)
}

func TestReadiness_NoRegistry_Returns503(t *testing.T) {
	handler := NewHealthHandler(nil, newTestManager(t))
	w := httptest.NewRecorder()

	handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "registry not initialized", decode(t, w).Error)
}

func TestReadiness_PendingComponents_Returns503(t *testing.T) {
	ready := lifecycle.NewFuncComponent(nil, nil)
	require.NoError(t, ready.Initialize(context.Background()))
	reg := newTestRegistry(t, map[string]lifecycle.Component{
		"global": ready,
		"theme":  lifecycle.NewFuncComponent(nil, nil),
	})
	handler := NewHealthHandler(reg, newTestManager(t))
	w := httptest.NewRecorder()

	handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, map[string]any{"not_initialized": []any{"theme"}}, resp.Data)
}

func TestReadiness_AllInitialized_ReturnsOK(t *testing.T) {
	c := lifecycle.NewFuncComponent(nil, nil)
	reg := newTestRegistry(t, map[string]lifecycle.Component{"global": c})
	require.NoError(t, reg.InitializeAll(context.Background()))
	handler := NewHealthHandler(reg, newTestManager(t))
	w := httptest.NewRecorder()

	handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := decode(t, w).Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sqlite", data["database"])
	assert.EqualValues(t, 1, data["components"])
	assert.EqualValues(t, database.LatestVersion(), data["schema_version"])
}

func TestComponents_ReportsProbes(t *testing.T) {
	ctx := context.Background()
	healthy := &probedComponent{FuncComponent: lifecycle.NewFuncComponent(nil, nil)}
	failing := &probedComponent{FuncComponent: lifecycle.NewFuncComponent(nil, nil), err: errors.New("disk gone")}
	require.NoError(t, healthy.Initialize(ctx))
	require.NoError(t, failing.Initialize(ctx))

	reg := lifecycle.NewRegistry(lifecycle.WithLogger(logger.Nop()))
	reg.Register("healthy", healthy)
	reg.Register("failing", failing)

	handler := NewHealthHandler(reg, newTestManager(t))
	w := httptest.NewRecorder()
	handler.Components(w, httptest.NewRequest("GET", "/health/components", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string             `json:"status"`
		Data   ComponentsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "healthy", body.Data.Database.Status)
	require.Len(t, body.Data.Components, 2)
	assert.Equal(t, "healthy", body.Data.Components[0].Name)
	assert.Equal(t, "healthy", body.Data.Components[0].Status)
	assert.Equal(t, "failing", body.Data.Components[1].Name)
	assert.Equal(t, "unhealthy", body.Data.Components[1].Status)
	assert.Equal(t, "disk gone", body.Data.Components[1].Error)
}

func TestComponents_AllHealthy_ReturnsOK(t *testing.T) {
	c := lifecycle.NewFuncComponent(nil, nil)
	reg := newTestRegistry(t, map[string]lifecycle.Component{"global": c})
	require.NoError(t, reg.InitializeAll(context.Background()))

	handler := NewHealthHandler(reg, newTestManager(t))
	w := httptest.NewRecorder()
	handler.Components(w, httptest.NewRequest("GET", "/health/components", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w).Status)
}
