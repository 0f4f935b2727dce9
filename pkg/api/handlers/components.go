package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/fieldstore/pkg/archive"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
	"github.com/marmos91/fieldstore/pkg/lifecycle"
	"github.com/marmos91/fieldstore/pkg/state"
)

// ArchiveComponent is the registry name of the backup archive.
const ArchiveComponent = "archive"

// ComponentsHandler exposes data held by registered components.
type ComponentsHandler struct {
	registry *lifecycle.Registry
}

// NewComponentsHandler creates a new components handler.
func NewComponentsHandler(registry *lifecycle.Registry) *ComponentsHandler {
	return &ComponentsHandler{registry: registry}
}

// ComponentStatus is one entry of GET /api/v1/components.
type ComponentStatus struct {
	Name        string `json:"name"`
	Initialized bool   `json:"initialized"`
}

// Status handles GET /api/v1/components, listing the registry in
// registration order.
func (h *ComponentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	out := make([]ComponentStatus, 0)
	if h.registry != nil {
		status := h.registry.Status()
		for _, name := range h.registry.Names() {
			out = append(out, ComponentStatus{Name: name, Initialized: status[name]})
		}
	}
	writeJSON(w, http.StatusOK, okResponse(out))
}

// State handles GET /api/v1/state/{component}, returning every key of a
// state store.
func (h *ComponentsHandler) State(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "component")
	store, err := lookupReady[*state.Store](h.registry, name, "state store")
	if err != nil {
		writeError(w, r, err)
		return
	}

	snapshot, err := store.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(snapshot))
}

// Backups handles GET /api/v1/backups, newest first.
func (h *ComponentsHandler) Backups(w http.ResponseWriter, r *http.Request) {
	a, err := lookupReady[*archive.Archive](h.registry, ArchiveComponent, "component")
	if err != nil {
		writeError(w, r, err)
		return
	}

	objects, err := a.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]any{
		"bucket":  a.Bucket(),
		"objects": objects,
	}))
}

type initializable interface {
	IsInitialized() bool
}

func lookupReady[T initializable](registry *lifecycle.Registry, name, resourceType string) (T, error) {
	var zero T
	if registry == nil || !registry.Has(name) {
		return zero, dberrors.NewNotFoundError(resourceType, name)
	}
	c, ok := lifecycle.Lookup[T](registry, name)
	if !ok {
		return zero, dberrors.NewNotFoundError(resourceType, name)
	}
	if !c.IsInitialized() {
		return zero, dberrors.NewNotReadyError(name)
	}
	return c, nil
}

var (
	_ Healthchecker = (*state.Store)(nil)
	_ Healthchecker = (*archive.Archive)(nil)
)
