package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const contentTypeProblem = "application/problem+json"

// APIError represents an error response from the API.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`

	// Kind is the server-side error kind, e.g. "NotFound", when known.
	Kind string `json:"kind,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	title := e.Title
	if title == "" {
		title = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", title, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", title, e.Status)
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsNotReady returns true if the server or a component is not initialized.
func (e *APIError) IsNotReady() bool {
	return e.Status == http.StatusServiceUnavailable
}

// IsValidationError returns true if the request was rejected as invalid.
func (e *APIError) IsValidationError() bool {
	return e.Status == http.StatusBadRequest
}

func decodeProblem(status int, body []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Detail = string(body)
	}
	if apiErr.Status == 0 {
		apiErr.Status = status
	}
	return apiErr
}
