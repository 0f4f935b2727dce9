package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// Server provides an HTTP server for the REST API.
//
// Server is a lifecycle component: Initialize binds the listener and starts
// serving in the background, Destroy shuts it down gracefully. It can be
// initialized again after Destroy.
type Server struct {
	mu       sync.Mutex
	config   APIConfig
	handler  http.Handler
	server   *http.Server
	listener net.Listener
	preset   net.Listener
	done     chan struct{}
	log      logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithListener serves on l instead of binding the configured address.
// The listener is consumed by the first Initialize.
func WithListener(l net.Listener) ServerOption {
	return func(s *Server) { s.preset = l }
}

// WithServerLogger sets the logging collaborator.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Defaults are applied here so
// the server works when created directly (e.g., in tests); this is
// idempotent with the defaults applied during config loading.
func NewServer(config APIConfig, deps Dependencies, opts ...ServerOption) *Server {
	config.ApplyDefaults()

	s := &Server{config: config}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrDefault(s.log)
	if deps.Logger == nil {
		deps.Logger = s.log
	}
	if deps.RequestTimeout == 0 {
		deps.RequestTimeout = config.RequestTimeout
	}
	s.handler = NewRouter(deps)
	return s
}

// Handler returns the router, for serving without a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Initialize binds the listener and starts serving.
func (s *Server) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	ln := s.preset
	s.preset = nil
	if ln == nil {
		var lc net.ListenConfig
		var err error
		ln, err = lc.Listen(ctx, "tcp", s.config.Addr())
		if err != nil {
			return dberrors.NewInitializationError(err, fmt.Sprintf("listen on %s", s.config.Addr()))
		}
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API server failed", logger.KeyError, err)
		}
	}()

	s.server = srv
	s.listener = ln
	s.done = done

	addr := ln.Addr().String()
	s.log.Info("API server listening", "addr", addr)
	s.log.Debug("API endpoints available",
		"health", fmt.Sprintf("http://%s/health", addr),
		"ready", fmt.Sprintf("http://%s/health/ready", addr),
		"metrics", fmt.Sprintf("http://%s/metrics", addr),
	)
	return nil
}

// Destroy gracefully shuts the server down. Without a deadline on ctx the
// configured shutdown timeout applies.
func (s *Server) Destroy(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	s.log.Debug("API server shutdown initiated")
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		s.log.Error("API server shutdown error", logger.KeyError, err)
		return fmt.Errorf("API server shutdown error: %w", err)
	}
	<-done
	s.log.Info("API server stopped gracefully")
	return nil
}

// IsInitialized reports whether the server is serving.
func (s *Server) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Addr returns the bound address, or "" when not serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound TCP port, falling back to the configured one.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return tcp.Port
		}
	}
	return s.config.Port
}
