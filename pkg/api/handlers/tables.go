package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/fieldstore/pkg/database"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// TablesHandler serves read-only access to the queryable tables.
type TablesHandler struct {
	manager *database.Manager
}

// NewTablesHandler creates a new tables handler.
func NewTablesHandler(manager *database.Manager) *TablesHandler {
	return &TablesHandler{manager: manager}
}

// List handles GET /api/v1/tables.
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil || !h.manager.IsReady() {
		writeError(w, r, dberrors.NewNotReadyError("tables"))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(h.manager.Store().Tables()))
}

// Rows handles GET /api/v1/tables/{table}.
//
// Query parameters:
//   - page, page_size, offset: the page window (page is 0-based)
//   - order: comma separated columns, "-" prefix for descending
//   - columns: comma separated projection
//   - where: a filter expression, repeatable
//   - any other key: an equality filter on that column
func (h *TablesHandler) Rows(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		writeError(w, r, dberrors.NewNotReadyError("paginate"))
		return
	}

	params, err := paginationFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	params.Table = chi.URLParam(r, "table")

	page, err := h.manager.Store().Paginate(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(page))
}

var reservedParams = map[string]bool{
	"page": true, "page_size": true, "offset": true,
	"order": true, "columns": true, "where": true,
}

func paginationFromRequest(r *http.Request) (database.PaginationParams, error) {
	q := r.URL.Query()
	var params database.PaginationParams

	var err error
	if params.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return params, err
	}
	if params.PageSize, err = intParam(q.Get("page_size"), "page_size"); err != nil {
		return params, err
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := intParam(raw, "offset")
		if err != nil {
			return params, err
		}
		params.Offset = &offset
	}

	params.OrderBy = database.ParseOrder(q.Get("order"))
	for _, c := range strings.Split(q.Get("columns"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			params.Columns = append(params.Columns, c)
		}
	}
	for _, expr := range q["where"] {
		f, err := database.ParseFilter(expr)
		if err != nil {
			return params, err
		}
		params.Filters = append(params.Filters, f)
	}
	for key, values := range q {
		if reservedParams[key] {
			continue
		}
		for _, v := range values {
			params.Filters = append(params.Filters, database.Filter{Column: key, Op: database.OpEq, Value: v})
		}
	}
	return params, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dberrors.NewInvalidArgumentError("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
