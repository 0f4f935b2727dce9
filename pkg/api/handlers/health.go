package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/fieldstore/pkg/database"
	"github.com/marmos91/fieldstore/pkg/lifecycle"
)

// Healthchecker is implemented by components that can probe their backend.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Are the database and every component initialized?
//   - Component health: Per-component state and backend probe
type HealthHandler struct {
	registry  *lifecycle.Registry
	manager   *database.Manager
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. Either dependency may be
// nil, in which case readiness reports unhealthy.
func NewHealthHandler(registry *lifecycle.Registry, manager *database.Manager) *HealthHandler {
	return &HealthHandler{registry: registry, manager: manager, startedAt: time.Now()}
}

// LivenessData is the payload of GET /health.
type LivenessData struct {
	Service   string    `json:"service"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	UptimeSec int64     `json:"uptime_sec"`
}

// Liveness handles GET /health. It succeeds whenever the server responds.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(LivenessData{
		Service:   "fieldstore",
		StartedAt: h.startedAt.UTC(),
		Uptime:    uptime.Round(time.Second).String(),
		UptimeSec: int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 200 OK when the database facade is ready and every registered
// component is initialized, 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil || !h.manager.IsReady() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("database not ready"))
		return
	}
	if h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("registry not initialized"))
		return
	}

	var pending []string
	status := h.registry.Status()
	for _, name := range h.registry.Names() {
		if !status[name] {
			pending = append(pending, name)
		}
	}
	if len(pending) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(map[string]any{
			"not_initialized": pending,
		}))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"database":       h.manager.Store().Type(),
		"schema_version": h.manager.Store().SchemaVersion(),
		"components":     h.registry.Len(),
	}))
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Name        string `json:"name"`
	Initialized bool   `json:"initialized"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Latency     string `json:"latency,omitempty"`
}

// ComponentsResponse is the body of GET /health/components.
type ComponentsResponse struct {
	Database   ComponentHealth   `json:"database"`
	Components []ComponentHealth `json:"components"`
}

// Components handles GET /health/components.
//
// Reports the database and every registered component in registration
// order. Components implementing Healthchecker are probed. Returns 503
// when anything is unhealthy.
func (h *HealthHandler) Components(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("registry not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ComponentsResponse{Components: make([]ComponentHealth, 0)}
	allHealthy := true

	resp.Database = ComponentHealth{Name: "database"}
	if h.manager != nil && h.manager.IsReady() {
		resp.Database.Initialized = true
		probe(ctx, &resp.Database, h.manager.Store())
	} else {
		resp.Database.Status = "not_initialized"
	}
	allHealthy = allHealthy && resp.Database.Status == "healthy"

	status := h.registry.Status()
	for _, name := range h.registry.Names() {
		health := ComponentHealth{Name: name, Initialized: status[name]}
		c, ok := h.registry.Get(name)
		switch {
		case !ok:
			// Destroyed between Names and Get.
			continue
		case !health.Initialized:
			health.Status = "not_initialized"
		default:
			if hc, ok := c.(Healthchecker); ok {
				probe(ctx, &health, hc)
			} else {
				health.Status = "healthy"
			}
		}
		allHealthy = allHealthy && health.Status == "healthy"
		resp.Components = append(resp.Components, health)
	}

	if allHealthy {
		writeJSON(w, http.StatusOK, healthyResponse(resp))
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(resp))
}

func probe(ctx context.Context, health *ComponentHealth, hc Healthchecker) {
	start := time.Now()
	err := hc.Healthcheck(ctx)
	health.Latency = time.Since(start).String()
	if err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
		return
	}
	health.Status = "healthy"
}
