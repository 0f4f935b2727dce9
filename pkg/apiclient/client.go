// Package apiclient provides a client for the fieldstore REST API.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the fieldstore API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Envelope is the wrapper every non-problem response uses.
type Envelope struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// do performs a GET and decodes the envelope. Problem responses become
// *APIError; envelopes are returned with their status code even when it
// signals failure, since health endpoints answer 503 with a body.
func (c *Client) do(ctx context.Context, path string, query url.Values) (*Envelope, int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), contentTypeProblem) {
		return nil, resp.StatusCode, decodeProblem(resp.StatusCode, body)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status == "" {
		if resp.StatusCode >= 400 {
			return nil, resp.StatusCode, &APIError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
		}
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: unexpected body from %s", path)
	}
	return &env, resp.StatusCode, nil
}

// get fetches path and decodes the envelope data into result. Any status
// of 400 or above is an error.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	env, status, err := c.do(ctx, path, query)
	if err != nil {
		return err
	}
	if status >= 400 {
		return &APIError{Status: status, Title: http.StatusText(status), Detail: env.Error}
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
