package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(w http.ResponseWriter, status int, s string, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    s,
		"timestamp": time.Now().UTC(),
		"data":      data,
		"error":     errMsg,
	})
}

func TestNew(t *testing.T) {
	client := New("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.BaseURL())
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	client = New("http://localhost:8080", WithTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, client.httpClient.Timeout)
}

func TestGetDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "/api/v1/tables", r.URL.Path)
		envelope(w, http.StatusOK, "ok", []string{"photos", "projects"}, "")
	}))
	defer server.Close()

	tables, err := New(server.URL).Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"photos", "projects"}, tables)
}

func TestGetProblem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":   "about:blank",
			"title":  "Not Found",
			"status": http.StatusNotFound,
			"detail": `NotFound: table "nope" not found`,
			"kind":   "NotFound",
		})
	}))
	defer server.Close()

	_, err := New(server.URL).Rows(context.Background(), "nope", RowsQuery{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "NotFound", apiErr.Kind)
	assert.Contains(t, apiErr.Error(), "Not Found (404)")
}

func TestGetPlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL).Stats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Detail)
}

func TestRowsQueryEncoding(t *testing.T) {
	offset := 5
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/tables/users", r.URL.Path)
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("page_size"))
		assert.Equal(t, "5", q.Get("offset"))
		assert.Equal(t, "-id", q.Get("order"))
		assert.Equal(t, "id,username", q.Get("columns"))
		assert.Equal(t, []string{"username~user1%", "id>3"}, q["where"])
		assert.Equal(t, "true", q.Get("active"))

		envelope(w, http.StatusOK, "ok", map[string]any{
			"items":       []map[string]any{{"id": 1, "username": "user01"}},
			"total_count": 11,
			"page":        2,
			"page_size":   10,
			"has_more":    false,
		}, "")
	}))
	defer server.Close()

	page, err := New(server.URL).Rows(context.Background(), "users", RowsQuery{
		Page:     2,
		PageSize: 10,
		Offset:   &offset,
		Order:    "-id",
		Columns:  []string{"id", "username"},
		Where:    []string{"username~user1%", "id>3"},
		Equals:   map[string]string{"active": "true"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "user01", page.Items[0]["username"])
}

func TestReady(t *testing.T) {
	ready := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready {
			envelope(w, http.StatusOK, "healthy", map[string]any{
				"database": "sqlite", "schema_version": 1, "components": 4,
			}, "")
			return
		}
		envelope(w, http.StatusServiceUnavailable, "unhealthy", map[string]any{
			"not_initialized": []string{"archive"},
		}, "")
	}))
	defer server.Close()

	client := New(server.URL)
	r, err := client.Ready(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Ready)
	assert.Equal(t, "sqlite", r.Database)
	assert.Equal(t, 4, r.Components)

	ready = false
	r, err = client.Ready(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Ready)
	assert.Equal(t, []string{"archive"}, r.NotInitialized)
}

func TestComponentsUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusServiceUnavailable, "unhealthy", map[string]any{
			"database": map[string]any{"name": "database", "initialized": true, "status": "healthy"},
			"components": []map[string]any{
				{"name": "archive", "initialized": true, "status": "unhealthy", "error": "no bucket"},
			},
		}, "")
	}))
	defer server.Close()

	resp, healthy, err := New(server.URL).Components(context.Background())
	require.NoError(t, err)
	assert.False(t, healthy)
	assert.Equal(t, "healthy", resp.Database.Status)
	require.Len(t, resp.Components, 1)
	assert.Equal(t, "no bucket", resp.Components[0].Error)
}

func TestHealth(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		envelope(w, http.StatusOK, "healthy", map[string]any{
			"service": "fieldstore", "started_at": started, "uptime": "1h0m0s", "uptime_sec": 3600,
		}, "")
	}))
	defer server.Close()

	live, err := New(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fieldstore", live.Service)
	assert.True(t, started.Equal(live.StartedAt))
	assert.Equal(t, int64(3600), live.UptimeSec)
}

func TestUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url, WithTimeout(time.Second)).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}
