package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/pkg/apiclient"
)

func statusServer(t *testing.T, readyStatus int, ready string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"status":"healthy","data":{"service":"fieldstore","started_at":"2024-05-01T10:00:00Z","uptime":"1h2m3s","uptime_sec":3723}}`)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		write(w, readyStatus, ready)
	})
	mux.HandleFunc("/health/components", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"status":"healthy","data":{"database":{"name":"database","initialized":true,"status":"healthy"},"components":[{"name":"global","initialized":true,"status":"healthy","latency":"1ms"}]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectStatus_Healthy(t *testing.T) {
	srv := statusServer(t, http.StatusOK,
		`{"status":"healthy","data":{"database":"sqlite","schema_version":3,"components":4}}`)

	var status ServerStatus
	collectStatus(context.Background(), apiclient.New(srv.URL), &status)

	assert.True(t, status.Running)
	assert.True(t, status.Healthy)
	assert.Equal(t, "1h2m3s", status.Uptime)
	assert.Equal(t, "sqlite", status.Database)
	assert.Equal(t, 3, status.SchemaVersion)
	require.Len(t, status.Components, 1)
	assert.Equal(t, "global", status.Components[0].Name)
	assert.Equal(t, "Server is running and healthy", status.Message)
}

func TestCollectStatus_NotReady(t *testing.T) {
	srv := statusServer(t, http.StatusServiceUnavailable,
		`{"status":"unhealthy","error":"database not ready"}`)

	var status ServerStatus
	collectStatus(context.Background(), apiclient.New(srv.URL), &status)

	assert.True(t, status.Running)
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Message, "database not ready")
}

func TestCollectStatus_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	status := ServerStatus{Message: "Server is not running"}
	collectStatus(context.Background(), apiclient.New(url), &status)
	assert.False(t, status.Running)
	assert.Equal(t, "Server is not running", status.Message)

	status = ServerStatus{Running: true, PID: 42}
	collectStatus(context.Background(), apiclient.New(url), &status)
	assert.Equal(t, "Server process exists but health check failed", status.Message)
}
