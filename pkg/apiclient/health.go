package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marmos91/fieldstore/pkg/api/handlers"
)

// Health calls GET /health. It succeeds whenever the server answers.
func (c *Client) Health(ctx context.Context) (*handlers.LivenessData, error) {
	var out handlers.LivenessData
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readiness is the decoded answer of GET /health/ready.
type Readiness struct {
	Ready          bool     `json:"ready" yaml:"ready"`
	Database       string   `json:"database,omitempty" yaml:"database,omitempty"`
	SchemaVersion  int      `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	Components     int      `json:"components,omitempty" yaml:"components,omitempty"`
	NotInitialized []string `json:"not_initialized,omitempty" yaml:"not_initialized,omitempty"`
	Error          string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Ready calls GET /health/ready. A 503 answer is reported through
// Readiness.Ready, not as an error.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	env, status, err := c.do(ctx, "/health/ready", nil)
	if err != nil {
		return nil, err
	}

	r := &Readiness{Ready: status == http.StatusOK, Error: env.Error}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, r); err != nil {
			return nil, fmt.Errorf("failed to decode readiness: %w", err)
		}
		r.Ready = status == http.StatusOK
	}
	return r, nil
}

// Components calls GET /health/components and reports whether everything
// was healthy.
func (c *Client) Components(ctx context.Context) (*handlers.ComponentsResponse, bool, error) {
	env, status, err := c.do(ctx, "/health/components", nil)
	if err != nil {
		return nil, false, err
	}
	if len(env.Data) == 0 {
		return nil, false, &APIError{Status: status, Title: http.StatusText(status), Detail: env.Error}
	}

	var out handlers.ComponentsResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, false, fmt.Errorf("failed to decode components: %w", err)
	}
	return &out, status == http.StatusOK, nil
}
