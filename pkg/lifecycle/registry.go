package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/internal/telemetry"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

const (
	opInitialize = "initialize"
	opDestroy    = "destroy"
)

// Registry maps names to components and drives their lifecycle as a group.
// All methods are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
	order      []string

	log     logger.Logger
	metrics Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logging collaborator.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{components: make(map[string]Component)}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.OrDefault(r.log)
	return r
}

type entry struct {
	name      string
	component Component
}

// Register adds c under name. The first registration of a name wins: a
// duplicate is logged and reported by returning false.
func (r *Registry) Register(name string, c Component) bool {
	if name == "" || c == nil {
		r.log.Error("Invalid component registration", "name", name, "nil_component", c == nil)
		return false
	}

	r.mu.Lock()
	if _, exists := r.components[name]; exists {
		r.mu.Unlock()
		err := dberrors.NewDuplicateRegistrationError(name)
		r.log.Warn("Component already registered, keeping the original",
			logger.KeyComponent, name,
			logger.KeyErrorKind, dberrors.KindOf(err).String())
		return false
	}
	r.components[name] = c
	r.order = append(r.order, name)
	count := len(r.order)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetRegistered(count)
	}
	r.log.Info("Component registered", logger.KeyComponent, name)
	return true
}

// Get returns the component registered under name. A missing name is
// logged as an error.
func (r *Registry) Get(name string) (Component, bool) {
	r.mu.RLock()
	c, ok := r.components[name]
	r.mu.RUnlock()

	if !ok {
		err := dberrors.NewNotFoundError("component", name)
		r.log.Error("Component not found",
			logger.KeyComponent, name,
			logger.KeyErrorKind, dberrors.KindOf(err).String())
		return nil, false
	}
	return c, true
}

// Lookup returns the component registered under name as a T. A missing
// name or a component of another type is logged and yields false.
func Lookup[T any](r *Registry, name string) (T, bool) {
	var zero T
	c, ok := r.Get(name)
	if !ok {
		return zero, false
	}
	typed, ok := c.(T)
	if !ok {
		r.log.Error("Component has unexpected type",
			logger.KeyComponent, name,
			"want", fmt.Sprintf("%T", zero),
			"got", fmt.Sprintf("%T", c))
		return zero, false
	}
	return typed, true
}

// Has reports whether name is registered. Unlike Get it does not log.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Status returns each component's IsInitialized state.
func (r *Registry) Status() map[string]bool {
	entries := r.snapshot()
	status := make(map[string]bool, len(entries))
	for _, e := range entries {
		status[e.name] = e.component.IsInitialized()
	}
	return status
}

func (r *Registry) snapshot() []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]entry, len(r.order))
	for i, name := range r.order {
		entries[i] = entry{name: name, component: r.components[name]}
	}
	return entries
}

// InitializeAll initializes every registered component concurrently and
// waits for all of them. It returns nil when all succeed, otherwise an
// *InitError. Components that succeeded stay initialized.
func (r *Registry) InitializeAll(ctx context.Context) error {
	entries := r.snapshot()
	if len(entries) == 0 {
		r.log.Debug("No components to initialize")
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "registry.initialize_all")
	defer span.End()

	start := time.Now()
	errs := make([]error, len(entries))

	var (
		wg       sync.WaitGroup
		firstMu  sync.Mutex
		firstIdx = -1
	)
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			err := r.run(ctx, opInitialize, e, e.component.Initialize)
			errs[i] = err
			if err != nil {
				firstMu.Lock()
				if firstIdx < 0 {
					firstIdx = i
				}
				firstMu.Unlock()
			}
		}(i, e)
	}
	wg.Wait()

	if firstIdx < 0 {
		r.log.Info("All components initialized",
			logger.KeyComponents, len(entries),
			logger.KeyDurationMs, logger.Duration(start))
		return nil
	}

	initErr := &InitError{Primary: ComponentError{Name: entries[firstIdx].name, Err: errs[firstIdx]}}
	for i, err := range errs {
		if err != nil {
			initErr.Failures = append(initErr.Failures, ComponentError{Name: entries[i].name, Err: err})
		}
	}

	span.RecordError(initErr)
	span.SetStatus(codes.Error, "component initialization failed")
	r.log.Error("Component initialization failed",
		logger.KeyComponent, initErr.Primary.Name,
		logger.KeyError, initErr.Primary.Err,
		"failed", initErr.Failed(),
		logger.KeyDurationMs, logger.Duration(start))
	return initErr
}

// DestroyReport describes the outcome of DestroyAll.
type DestroyReport struct {
	Destroyed []string
	Failed    map[string]error
}

// OK reports whether every component was destroyed cleanly.
func (d DestroyReport) OK() bool {
	return len(d.Failed) == 0
}

// DestroyAll removes every component from the registry and destroys them
// concurrently. Failures are logged and reported but never stop the other
// components; the registry is empty afterwards.
func (r *Registry) DestroyAll(ctx context.Context) DestroyReport {
	r.mu.Lock()
	entries := make([]entry, len(r.order))
	for i, name := range r.order {
		entries[i] = entry{name: name, component: r.components[name]}
	}
	r.components = make(map[string]Component)
	r.order = nil
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetRegistered(0)
	}

	report := DestroyReport{Failed: make(map[string]error)}
	if len(entries) == 0 {
		r.log.Debug("No components to destroy")
		return report
	}

	ctx, span := telemetry.StartSpan(ctx, "registry.destroy_all")
	defer span.End()

	start := time.Now()
	errs := make([]error, len(entries))

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			errs[i] = r.run(ctx, opDestroy, e, e.component.Destroy)
		}(i, e)
	}
	wg.Wait()

	for i, err := range errs {
		name := entries[i].name
		if err != nil {
			report.Failed[name] = err
			r.log.Error("Component destroy failed", logger.KeyComponent, name, logger.KeyError, err)
			continue
		}
		report.Destroyed = append(report.Destroyed, name)
	}

	if !report.OK() {
		failed := make([]string, 0, len(report.Failed))
		for name := range report.Failed {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		span.SetStatus(codes.Error, "component destroy failed")
		r.log.Warn("Components destroyed with failures",
			logger.KeyComponents, len(entries),
			"failed", failed,
			logger.KeyDurationMs, logger.Duration(start))
		return report
	}

	r.log.Info("All components destroyed",
		logger.KeyComponents, len(entries),
		logger.KeyDurationMs, logger.Duration(start))
	return report
}

// run invokes one lifecycle step for a single component, converting a
// panic into an error and recording the span, metrics and log line.
func (r *Registry) run(ctx context.Context, op string, e entry, fn func(context.Context) error) (err error) {
	ctx, span := telemetry.StartComponentSpan(ctx, op, e.name)
	defer span.End()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during %s: %v", op, p)
		}

		d := time.Since(start)
		if r.metrics != nil {
			if op == opInitialize {
				r.metrics.ObserveInitialize(e.name, d, err)
			} else {
				r.metrics.ObserveDestroy(e.name, d, err)
			}
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		r.log.Debug("Component "+op+" completed",
			logger.KeyComponent, e.name,
			logger.KeyDurationMs, float64(d.Microseconds())/1000.0)
	}()

	return fn(ctx)
}
