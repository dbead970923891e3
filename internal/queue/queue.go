// Package queue implements the submit-side library surface: Init-style
// construction, handler registration, Submit's six-step validate-then-
// insert sequence, and the read-only Get/List projections. It is the thin
// orchestration layer over internal/store.Store and internal/registry.Registry
// that spec.md §2 calls the Submit API.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/ptr"
	"github.com/arashn/taskqueue/internal/registry"
	"github.com/arashn/taskqueue/internal/store"
)

// Defaults mirrors spec.md §6's configuration-defaults table.
type Defaults struct {
	MaxRetries     int
	TimeoutSeconds *int // nil = default_task_timeout_seconds=none
}

// DefaultDefaults returns spec.md §6's literal default values.
func DefaultDefaults() Defaults {
	return Defaults{MaxRetries: 3, TimeoutSeconds: nil}
}

// Queue is the runtime instance holding its own Registry — per spec.md
// §9's first design note, the registry is never ambient package state.
type Queue struct {
	store    store.Store
	registry *registry.Registry
	defaults Defaults
}

// New constructs a Queue over an already-open store and a fresh registry.
func New(s store.Store, defaults Defaults) *Queue {
	return &Queue{store: s, registry: registry.New(), defaults: defaults}
}

// Register adds a handler under name. See registry.Registry.Register.
func (q *Queue) Register(name string, h registry.Handler, schema registry.Schema, opts ...registry.RegisterOption) error {
	return q.registry.Register(name, h, schema, opts...)
}

// Registry exposes the underlying registry, for the worker loop's dispatch
// lookups.
func (q *Queue) Registry() *registry.Registry { return q.registry }

// SubmitParams is the full set of optional Submit inputs beyond name and
// kwargs.
type SubmitParams struct {
	DelaySeconds   float64
	Priority       int
	Tags           map[string]any
	MaxRetries     *int
	TimeoutSeconds *int
}

// Submit implements spec.md §4.3's six steps: look up the handler, validate
// kwargs against its schema, resolve max_retries/timeout_seconds by
// precedence, compute scheduled_at, insert a pending row, return its id.
// No row is written if lookup or validation fails.
func (q *Queue) Submit(ctx context.Context, name string, kwargs map[string]any, params SubmitParams) (string, error) {
	entry, ok := q.registry.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownHandler, name)
	}

	validated, err := entry.Schema.Validate(kwargs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	maxRetries := q.defaults.MaxRetries
	if entry.Overrides.MaxRetries != nil {
		maxRetries = *entry.Overrides.MaxRetries
	}
	if params.MaxRetries != nil {
		maxRetries = *params.MaxRetries
	}

	timeoutSeconds := q.defaults.TimeoutSeconds
	if entry.Overrides.TimeoutSeconds != nil {
		timeoutSeconds = entry.Overrides.TimeoutSeconds
	}
	if params.TimeoutSeconds != nil {
		timeoutSeconds = params.TimeoutSeconds
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate task id: %w", err)
	}

	now := time.Now().UTC()
	tags := params.Tags
	if tags == nil {
		tags = map[string]any{}
	}

	task := &domain.Task{
		ID:             id.String(),
		Name:           name,
		Args:           map[string]any{},
		Kwargs:         validated,
		State:          domain.StatePending,
		RetryCount:     0,
		MaxRetries:     maxRetries,
		ScheduledAt:    now.Add(time.Duration(params.DelaySeconds * float64(time.Second))),
		CreatedAt:      now,
		TimeoutSeconds: timeoutSeconds,
		Priority:       params.Priority,
		Tags:           tags,
		HandlerVersion: ptr.To(entry.Schema.Version),
	}

	if err := q.store.Insert(ctx, task); err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}
	return task.ID, nil
}

// Get returns the task with the given id.
func (q *Queue) Get(ctx context.Context, id string) (*domain.Task, error) {
	return q.store.Get(ctx, id)
}

// List returns tasks matching the optional state/name filters.
func (q *Queue) List(ctx context.Context, filters store.Filters, limit int) ([]*domain.Task, error) {
	return q.store.List(ctx, filters, limit)
}

// RequeueTerminal reads a terminal failed row's name and kwargs and submits
// a fresh task with them; the original row is untouched. Grounded in the
// teacher's dead-letter retry operation, recast over the one-table model
// (see DESIGN.md).
func (q *Queue) RequeueTerminal(ctx context.Context, id string) (string, error) {
	task, err := q.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !task.IsTerminal() || task.State != domain.StateFailed {
		return "", domain.ErrNotTerminal
	}
	return q.Submit(ctx, task.Name, task.Kwargs, SubmitParams{
		Priority: task.Priority,
		Tags:     task.Tags,
	})
}

// ListTerminalFailed returns terminal failed rows for administrative
// review, capped at limit.
func (q *Queue) ListTerminalFailed(ctx context.Context, limit int) ([]*domain.Task, error) {
	return q.store.ListTerminalFailed(ctx, limit)
}
