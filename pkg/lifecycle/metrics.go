package lifecycle

import "time"

// Metrics receives registry instrumentation. A nil Metrics disables collection.
type Metrics interface {
	ObserveInitialize(component string, duration time.Duration, err error)
	ObserveDestroy(component string, duration time.Duration, err error)
	SetRegistered(count int)
}
