// Package metrics owns the process-wide Prometheus registry. Collectors in
// pkg/metrics/prometheus register against it once InitRegistry has run;
// before that every constructor returns nil and instrumentation is off.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "fieldstore"

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates a fresh registry with the Go runtime and process
// collectors and makes it current. Calling it again replaces the registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	mu.Unlock()
	return reg
}

// GetRegistry returns the current registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// Reset disables metrics. Collectors created earlier keep working but are
// no longer exported.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()
}

// Handler serves the current registry in the Prometheus exposition format.
// It responds 404 while metrics are disabled.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg := GetRegistry()
		if reg == nil {
			http.Error(w, "metrics disabled", http.StatusNotFound)
			return
		}
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}).ServeHTTP(w, r)
	})
}

// Status labels an outcome: "ok" for nil, otherwise "error".
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
