package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// Problem represents an RFC 7807 "problem details" response.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// Kind is the error kind name when the failure was classified.
	Kind string `json:"kind,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &Problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblem(w http.ResponseWriter, p *Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// ServiceUnavailable writes a 503 Service Unavailable problem response.
func ServiceUnavailable(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// statusForKind maps an error kind onto the HTTP status it is served with.
func statusForKind(kind dberrors.ErrorKind) int {
	switch kind {
	case dberrors.NotReady, dberrors.InitializationError:
		return http.StatusServiceUnavailable
	case dberrors.NotFound:
		return http.StatusNotFound
	case dberrors.InvalidArgument:
		return http.StatusBadRequest
	case dberrors.TransactionFailure, dberrors.DuplicateRegistration:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError serves err as a problem response. Internal errors are logged
// and their detail withheld.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := dberrors.KindOf(err)
	status := statusForKind(kind)
	p := &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
	}
	if kind != 0 {
		p.Kind = kind.String()
	}
	if status == http.StatusInternalServerError {
		logger.Error("API request failed", "path", r.URL.Path, logger.KeyError, err)
		p.Detail = "internal error"
	}
	writeProblem(w, p)
}
