package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/api/handlers"
	"github.com/marmos91/fieldstore/pkg/database"
	"github.com/marmos91/fieldstore/pkg/lifecycle"
	"github.com/marmos91/fieldstore/pkg/metrics"
)

// Dependencies are the collaborators the routes read from. Any of them may
// be nil; the affected endpoints then report the service as unavailable.
type Dependencies struct {
	Registry *lifecycle.Registry
	Manager  *database.Manager
	Logger   logger.Logger

	// RequestTimeout bounds each request. Zero disables the timeout.
	RequestTimeout time.Duration
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Request logging through the injected logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /health/components - Per-component health
//   - GET /api/v1/components - Registry status
//   - GET /api/v1/stats - Database statistics
//   - GET /api/v1/migrations - Migration state
//   - GET /api/v1/tables[/{table}] - Table list and paginated rows
//   - GET /api/v1/state/{component} - State store contents
//   - GET /api/v1/backups - Archived backups
//   - GET /metrics - Prometheus metrics
func NewRouter(deps Dependencies) http.Handler {
	log := logger.OrDefault(deps.Logger)
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	healthHandler := handlers.NewHealthHandler(deps.Registry, deps.Manager)
	statsHandler := handlers.NewStatsHandler(deps.Manager)
	tablesHandler := handlers.NewTablesHandler(deps.Manager)
	componentsHandler := handlers.NewComponentsHandler(deps.Registry)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
		r.Get("/components", healthHandler.Components)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/components", componentsHandler.Status)
		r.Get("/stats", statsHandler.Stats)
		r.Get("/migrations", statsHandler.Migrations)
		r.Get("/tables", tablesHandler.List)
		r.Get("/tables/{table}", tablesHandler.Rows)
		r.Get("/state/{component}", componentsHandler.State)
		r.Get("/backups", componentsHandler.Backups)
	})

	r.Handle("/metrics", metrics.Handler())

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs every request through log.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			log.Debug("API request started",
				"request_id", requestID,
				"method", r.Method,
				logger.KeyPath, r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("API request completed",
				"request_id", requestID,
				"method", r.Method,
				logger.KeyPath, r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				logger.KeyDurationMs, logger.Duration(start),
			)
		})
	}
}
