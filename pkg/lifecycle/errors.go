package lifecycle

import (
	"fmt"
	"strings"

	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// ComponentError is the failure of one component.
type ComponentError struct {
	Name string
	Err  error
}

func (e ComponentError) Error() string {
	return fmt.Sprintf("component %q: %v", e.Name, e.Err)
}

func (e ComponentError) Unwrap() error {
	return e.Err
}

// InitError is returned by InitializeAll when at least one component
// failed. Primary is the first failure to complete; Failures lists every
// failure in registration order.
type InitError struct {
	Primary  ComponentError
	Failures []ComponentError
}

func (e *InitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "initialize components: %s", e.Primary.Error())
	if extra := len(e.Failures) - 1; extra > 0 {
		names := make([]string, 0, extra)
		for _, f := range e.Failures {
			if f.Name != e.Primary.Name {
				names = append(names, f.Name)
			}
		}
		fmt.Fprintf(&b, " (also failed: %s)", strings.Join(names, ", "))
	}
	return b.String()
}

// Unwrap exposes an InitializationError around the primary cause and
// every component error, so errors.Is and errors.As see all of them.
func (e *InitError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures)+1)
	out = append(out, dberrors.NewInitializationError(e.Primary.Err, fmt.Sprintf("component %q failed to initialize", e.Primary.Name)))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}

// Failed returns the names of the failed components.
func (e *InitError) Failed() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Name
	}
	return names
}
