package handlers

import (
	"net/http"

	"github.com/marmos91/fieldstore/pkg/database"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// StatsHandler serves database statistics and migration state.
type StatsHandler struct {
	manager *database.Manager
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(manager *database.Manager) *StatsHandler {
	return &StatsHandler{manager: manager}
}

// Stats handles GET /api/v1/stats.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		writeError(w, r, dberrors.NewNotReadyError("stats"))
		return
	}
	stats, err := h.manager.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(stats))
}

// Migrations handles GET /api/v1/migrations.
func (h *StatsHandler) Migrations(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil || !h.manager.IsReady() {
		writeError(w, r, dberrors.NewNotReadyError("migrations"))
		return
	}
	migrations, err := h.manager.Store().Migrations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(migrations))
}
