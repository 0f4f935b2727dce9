// Package app wires the fieldstore components together: the database
// facade, the badger state stores, the S3 archive, the REST API, telemetry
// and the config watcher. Everything except the database is a lifecycle
// component owned by one Registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/internal/telemetry"
	"github.com/marmos91/fieldstore/pkg/api"
	"github.com/marmos91/fieldstore/pkg/api/handlers"
	"github.com/marmos91/fieldstore/pkg/archive"
	"github.com/marmos91/fieldstore/pkg/config"
	"github.com/marmos91/fieldstore/pkg/database"
	"github.com/marmos91/fieldstore/pkg/lifecycle"
	"github.com/marmos91/fieldstore/pkg/metrics"
	"github.com/marmos91/fieldstore/pkg/metrics/prometheus"
	"github.com/marmos91/fieldstore/pkg/state"
)

// Component names registered besides the state stores and the archive.
const (
	TelemetryComponent = "telemetry"
	APIComponent       = "api"
	WatcherComponent   = "config-watcher"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("application already started")

// App owns one configuration's worth of components.
type App struct {
	cfg        *config.Config
	configPath string
	version    string
	log        logger.Logger

	listener      net.Listener
	archiveClient archive.Client

	mu       sync.Mutex
	started  bool
	registry *lifecycle.Registry
	manager  *database.Manager
	server   *api.Server
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logging collaborator shared by every component.
func WithLogger(l logger.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithVersion sets the version reported to telemetry backends.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithConfigPath names the file the config watcher follows. Without it the
// watcher is not started.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithListener serves the API on l instead of the configured address.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// WithArchiveClient replaces the S3 client built from the archive config.
func WithArchiveClient(c archive.Client) Option {
	return func(a *App) { a.archiveClient = c }
}

// New creates an application for cfg. Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{cfg: cfg, version: "dev"}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.OrDefault(a.log)
	return a
}

// Registry returns the component registry, nil before Start.
func (a *App) Registry() *lifecycle.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry
}

// Manager returns the database facade, nil before Start.
func (a *App) Manager() *database.Manager {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.manager
}

// Server returns the API server, nil when the API is disabled.
func (a *App) Server() *api.Server {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server
}

// Start opens the database, registers every enabled component and
// initializes them together. On failure everything opened so far is torn
// down again.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}

	if a.cfg.Metrics.Enabled && !metrics.IsEnabled() {
		metrics.InitRegistry()
	}

	store := database.NewStore(
		database.WithLogger(a.log),
		database.WithMetrics(prometheus.NewDatabaseMetrics()),
	)
	manager := database.NewManager(store, database.WithManagerLogger(a.log))
	if res := manager.InitializeResult(ctx, &a.cfg.Database); !res.OK {
		return fmt.Errorf("failed to initialize database: %w", res.Err)
	}

	registry := lifecycle.NewRegistry(
		lifecycle.WithLogger(a.log),
		lifecycle.WithMetrics(prometheus.NewLifecycleMetrics()),
	)
	server := a.register(registry, manager)

	if err := registry.InitializeAll(ctx); err != nil {
		a.teardown(ctx, registry, manager)
		return err
	}

	a.registry, a.manager, a.server = registry, manager, server
	a.started = true

	a.log.Info("Application started",
		logger.KeyDatabaseType, store.Type(),
		logger.KeySchemaVersion, store.SchemaVersion(),
		"components", registry.Names())
	return nil
}

// register adds the enabled components in initialization-independent
// order. It returns the API server when one was registered.
func (a *App) register(registry *lifecycle.Registry, manager *database.Manager) *api.Server {
	registry.Register(TelemetryComponent, a.telemetryComponent())

	for _, s := range state.NewDefaults(a.cfg.State,
		state.WithLogger(a.log),
		state.WithMetrics(prometheus.NewStateMetrics()),
	) {
		registry.Register(s.Name(), s)
	}

	if a.cfg.Archive.Enabled {
		opts := []archive.Option{
			archive.WithLogger(a.log),
			archive.WithMetrics(prometheus.NewArchiveMetrics()),
		}
		if a.archiveClient != nil {
			opts = append(opts, archive.WithClient(a.archiveClient))
		}
		registry.Register(handlers.ArchiveComponent, archive.New(a.cfg.Archive, opts...))
	}

	if a.cfg.Watch.Enabled && a.configPath != "" {
		registry.Register(WatcherComponent, config.NewWatcher(
			a.configPath, a.cfg.Logging, a.cfg.Watch.Debounce,
			config.WithWatcherLogger(a.log),
		))
	}

	if !a.cfg.API.IsEnabled() {
		return nil
	}
	opts := []api.ServerOption{api.WithServerLogger(a.log)}
	if a.listener != nil {
		opts = append(opts, api.WithListener(a.listener))
	}
	server := api.NewServer(a.cfg.API, api.Dependencies{
		Registry: registry,
		Manager:  manager,
		Logger:   a.log,
	}, opts...)
	registry.Register(APIComponent, server)
	return server
}

// telemetryComponent starts tracing and profiling as one component.
func (a *App) telemetryComponent() lifecycle.Component {
	var (
		stopTracing   func(context.Context) error
		stopProfiling func() error
	)

	return lifecycle.NewFuncComponent(
		func(ctx context.Context) error {
			tc := a.cfg.Telemetry
			shutdown, err := telemetry.Init(ctx, telemetry.Config{
				Enabled:        tc.Enabled,
				ServiceName:    "fieldstore",
				ServiceVersion: a.version,
				Endpoint:       tc.Endpoint,
				Insecure:       tc.Insecure,
				SampleRate:     tc.SampleRate,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}

			stop, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
				Enabled:        tc.Profiling.Enabled,
				ServiceName:    "fieldstore",
				ServiceVersion: a.version,
				Endpoint:       tc.Profiling.Endpoint,
				ProfileTypes:   tc.Profiling.ProfileTypes,
			})
			if err != nil {
				_ = shutdown(ctx)
				return fmt.Errorf("failed to initialize profiling: %w", err)
			}

			stopTracing, stopProfiling = shutdown, stop
			if telemetry.IsEnabled() {
				a.log.Info("Telemetry enabled", "endpoint", tc.Endpoint, "sample_rate", tc.SampleRate)
			}
			if telemetry.IsProfilingEnabled() {
				a.log.Info("Profiling enabled", "endpoint", tc.Profiling.Endpoint, "profile_types", tc.Profiling.ProfileTypes)
			}
			return nil
		},
		func(ctx context.Context) error {
			return errors.Join(stopProfiling(), stopTracing(ctx))
		},
	)
}

// Stop destroys every component, then closes the database. Components
// that fail to stop are logged; only the database close error is returned.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}
	a.started = false

	if _, ok := ctx.Deadline(); !ok && a.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
		defer cancel()
	}

	start := time.Now()
	err := a.teardown(ctx, a.registry, a.manager)
	a.server = nil
	a.log.Info("Application stopped", logger.KeyDurationMs, logger.Duration(start))
	return err
}

func (a *App) teardown(ctx context.Context, registry *lifecycle.Registry, manager *database.Manager) error {
	report := registry.DestroyAll(ctx)
	for name, err := range report.Failed {
		a.log.Warn("Component did not stop cleanly", "component", name, logger.KeyError, err)
	}
	if err := manager.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Run starts the application and blocks until ctx is cancelled, then stops
// it with a fresh context bounded by the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	a.log.Info("Server is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	a.log.Info("Shutdown signal received, initiating graceful shutdown")

	return a.Stop(context.WithoutCancel(ctx))
}
