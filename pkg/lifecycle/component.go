// Package lifecycle manages named components that are initialized together
// at startup and destroyed together at shutdown.
package lifecycle

import (
	"context"
	"sync"
)

// Component is a unit with an explicit lifecycle. Initialize and Destroy
// may be called from any goroutine; implementations track their own
// initialized state.
type Component interface {
	Initialize(ctx context.Context) error
	Destroy(ctx context.Context) error
	IsInitialized() bool
}

// FuncComponent adapts a pair of functions to Component. Either function
// may be nil. Initialize after success and Destroy before success are no-ops.
type FuncComponent struct {
	mu          sync.Mutex
	init        func(ctx context.Context) error
	destroy     func(ctx context.Context) error
	initialized bool
}

// NewFuncComponent creates a FuncComponent.
func NewFuncComponent(init, destroy func(ctx context.Context) error) *FuncComponent {
	return &FuncComponent{init: init, destroy: destroy}
}

// Initialize runs the init function once.
func (f *FuncComponent) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialized {
		return nil
	}
	if f.init != nil {
		if err := f.init(ctx); err != nil {
			return err
		}
	}
	f.initialized = true
	return nil
}

// Destroy runs the destroy function if Initialize succeeded. The component
// counts as destroyed even when the function fails.
func (f *FuncComponent) Destroy(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.initialized {
		return nil
	}
	f.initialized = false
	if f.destroy != nil {
		return f.destroy(ctx)
	}
	return nil
}

// IsInitialized reports whether Initialize succeeded and Destroy has not run since.
func (f *FuncComponent) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}
