// Package registry implements the process-local handler registry: the
// mapping from task name to (callable, parameter schema, per-task
// overrides). It is an explicit struct owned by the runtime that
// constructs it, never a package-level singleton, so that two runtimes in
// one process can each carry their own set of registrations.
package registry

import (
	"context"
	"fmt"
	"sync"
)

// Handler is the synchronous unit of work a worker dispatches. It receives
// validated, default-filled kwargs and returns a JSON-serializable result
// (or nil) plus an error.
type Handler func(ctx context.Context, kwargs map[string]any) (any, error)

// Overrides holds per-task defaults set at registration time, used when a
// submit call does not supply its own value.
type Overrides struct {
	MaxRetries      *int
	TimeoutSeconds  *int
}

// Entry is what Lookup returns: the callable, its schema, and its
// registration-time overrides.
type Entry struct {
	Name      string
	Handler   Handler
	Schema    Schema
	Overrides Overrides
}

// ErrAlreadyRegistered is returned by Register when name was already used
// in this Registry.
type ErrAlreadyRegistered struct{ Name string }

func (e ErrAlreadyRegistered) Error() string {
	return fmt.Sprintf("handler %q already registered", e.Name)
}

// Registry maps task names to handlers. Safe for concurrent use: Register
// is expected at process startup, Lookup from both submit and worker paths
// concurrently thereafter.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// RegisterOption configures a registration.
type RegisterOption func(*Entry)

// WithMaxRetries sets the per-task default max_retries for this handler,
// used when a submit call doesn't override it.
func WithMaxRetries(n int) RegisterOption {
	return func(e *Entry) { e.Overrides.MaxRetries = &n }
}

// WithTimeoutSeconds sets the per-task default execution timeout for this
// handler, used when a submit call doesn't override it.
func WithTimeoutSeconds(n int) RegisterOption {
	return func(e *Entry) { e.Overrides.TimeoutSeconds = &n }
}

// Register adds name to the registry. A name may be registered at most
// once; a second registration returns ErrAlreadyRegistered.
func (r *Registry) Register(name string, h Handler, schema Schema, opts ...RegisterOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return ErrAlreadyRegistered{Name: name}
	}

	entry := Entry{Name: name, Handler: h, Schema: schema}
	for _, opt := range opts {
		opt(&entry)
	}
	r.entries[name] = entry
	return nil
}

// Lookup returns the entry registered under name, or false if none was.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns every registered handler name, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	return names
}
