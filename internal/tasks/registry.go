// Package tasks is the registry of task kinds a declarative campaign can
// bind a vertex to: a name (e.g. "http_request") maps to a Factory that
// builds a task.Adapter from the vertex's decoded arguments.
package tasks

import (
	"fmt"
	"log/slog"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/dagsched/internal/task"
)

// Factory builds one task.Adapter instance per vertex, from that vertex's
// already-decoded arguments and the shared resource set the campaign
// built (http clients, socket.io connections, ...).
type Factory func(args cty.Value, resources *Resources) (task.Adapter, error)

// Resources holds the long-lived objects a campaign's task instances may
// depend on (an *http.Client, a *socket.Socket), keyed by the name they
// were declared under.
type Resources struct {
	values map[string]any
}

// NewResources creates an empty resource set.
func NewResources() *Resources {
	return &Resources{values: make(map[string]any)}
}

// Set records a resource under name. Last write wins.
func (r *Resources) Set(name string, v any) {
	r.values[name] = v
}

// Get retrieves the resource registered under name.
func (r *Resources) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Registry maps a task kind name to the Factory that builds it.
type Registry struct {
	factories map[string]Factory
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a Factory under name. Registering the same name twice is
// a programmer error, so it panics rather than returning an error —
// registration happens once at process startup, before any campaign runs.
func (r *Registry) Register(name string, factory Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("tasks: factory %q already registered", name))
	}
	slog.Debug("registering task factory", "name", name)
	r.factories[name] = factory
}

// Build constructs an Adapter for the named task kind.
func (r *Registry) Build(name string, args cty.Value, resources *Resources) (task.Adapter, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("tasks: unknown task kind %q", name)
	}
	return factory(args, resources)
}

// Names returns every registered task kind, for diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	return out
}
