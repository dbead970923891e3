// Package worker implements the worker loop of spec.md §4.5: poll, claim
// up to a concurrency cap, dispatch each claimed task on a background
// goroutine with an optional timeout, and write the outcome back through
// the retry/failure policy of §4.6.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/registry"
	"github.com/arashn/taskqueue/internal/store"
)

// Config holds the worker loop's tunables. Field names and defaults mirror
// spec.md §6's configuration-defaults table.
type Config struct {
	WorkerID          string
	Concurrency       int           // default 1
	PollInterval      time.Duration // default 1s
	LockDuration      time.Duration // default 600s
	BaseRetryDelay    time.Duration // default 5s
	RetryMultiplier   float64       // default 2.0
	ErrorHandler      ErrorHandler
}

// DefaultConfig returns spec.md §6's literal defaults for a worker
// identified by workerID.
func DefaultConfig(workerID string) Config {
	return Config{
		WorkerID:        workerID,
		Concurrency:     1,
		PollInterval:    time.Second,
		LockDuration:    600 * time.Second,
		BaseRetryDelay:  5 * time.Second,
		RetryMultiplier: 2.0,
		ErrorHandler:    &DefaultErrorHandler{},
	}
}

// Worker runs the poll/claim/dispatch loop against a Store and a Registry.
type Worker struct {
	store    store.Store
	registry *registry.Registry
	cfg      Config

	sem  chan struct{}
	wg   sync.WaitGroup
	done chan struct{}
}

// New constructs a Worker. Concurrency/PollInterval/LockDuration fall back
// to DefaultConfig's values when zero.
func New(s store.Store, reg *registry.Registry, cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 600 * time.Second
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = 5 * time.Second
	}
	if cfg.RetryMultiplier <= 0 {
		cfg.RetryMultiplier = 2.0
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = &DefaultErrorHandler{}
	}

	return &Worker{
		store:    s,
		registry: reg,
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.Concurrency),
		done:     make(chan struct{}),
	}
}

// Run drives the loop until ctx is cancelled or Stop is called. It does
// not return until every in-flight execution has finished.
func (w *Worker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "worker loop starting",
		"worker_id", w.cfg.WorkerID,
		"concurrency", w.cfg.Concurrency,
		"poll_interval", w.cfg.PollInterval)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "worker loop context cancelled, draining in-flight tasks")
			w.wg.Wait()
			return ctx.Err()
		case <-w.done:
			slog.InfoContext(ctx, "worker loop stopped, draining in-flight tasks")
			w.wg.Wait()
			return nil
		case <-ticker.C:
			w.claimUntilEmptyOrFull(ctx)
		}
	}
}

// Stop requests a graceful shutdown: no further claims are issued, but
// Run does not return until in-flight executions finish.
func (w *Worker) Stop() { close(w.done) }

// claimUntilEmptyOrFull repeatedly claims while slots remain, per spec.md
// §4.5 step 1-2: "while in_flight < concurrency, attempt a claim".
func (w *Worker) claimUntilEmptyOrFull(ctx context.Context) {
	for {
		select {
		case w.sem <- struct{}{}:
		default:
			return // concurrency cap reached this round
		}

		task, err := w.store.ClaimOne(ctx, w.cfg.WorkerID, time.Now().UTC(), w.cfg.LockDuration)
		if err != nil {
			slog.ErrorContext(ctx, "claim failed, will retry next poll", "error", err)
			<-w.sem
			return
		}
		if task == nil {
			<-w.sem
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.execute(ctx, task)
		}()
	}
}

// execute dispatches one claimed task and writes its outcome, per spec.md
// §4.5 steps 1-5.
func (w *Worker) execute(ctx context.Context, task *domain.Task) {
	entry, ok := w.registry.Lookup(task.Name)
	if !ok {
		w.fail(ctx, task, fmt.Errorf("handler not registered: %s", task.Name))
		return
	}

	// Stored kwargs come back from the JSON column with every number as
	// float64; running them through the schema again hands the handler the
	// declared Go types.
	kwargs, err := entry.Schema.Validate(task.Kwargs)
	if err != nil {
		w.fail(ctx, task, fmt.Errorf("stored kwargs do not match schema: %w", err))
		return
	}
	task.Kwargs = kwargs

	result, err := w.dispatch(ctx, entry.Handler, task)
	if err != nil {
		w.fail(ctx, task, err)
		return
	}

	w.complete(ctx, task, result)
}

// dispatch runs the handler on a background goroutine so a blocking
// handler never stalls the scheduling loop or its peers, and abandons
// waiting after timeout_seconds if one is set (the handler goroutine is
// not forcibly terminated — spec.md §4.5 step 3).
func (w *Worker) dispatch(ctx context.Context, h registry.Handler, task *domain.Task) (result any, outcome error) {
	type dispatchResult struct {
		value any
		err   error
	}
	resultCh := make(chan dispatchResult, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				resultCh <- dispatchResult{err: PanicError{Value: p, StackTrace: string(debug.Stack())}}
			}
		}()
		v, err := h(ctx, task.Kwargs)
		resultCh <- dispatchResult{value: v, err: err}
	}()

	if task.TimeoutSeconds == nil {
		r := <-resultCh
		return r.value, r.err
	}

	timeout := time.Duration(*task.TimeoutSeconds) * time.Second
	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-time.After(timeout):
		return nil, TimeoutError{TimeoutSeconds: *task.TimeoutSeconds}
	}
}

// complete writes a successful terminal outcome.
func (w *Worker) complete(ctx context.Context, task *domain.Task, value any) {
	var envelope *domain.ResultEnvelope
	if value != nil {
		envelope = &domain.ResultEnvelope{Value: value}
	}
	if err := w.store.MarkCompleted(ctx, task.ID, envelope, time.Now().UTC()); err != nil {
		slog.ErrorContext(ctx, "failed to record completed task",
			"task_id", task.ID, "error", err)
	}
}

// fail applies the retry/failure policy of spec.md §4.6 and invokes the
// configured ErrorHandler hook for telemetry only.
func (w *Worker) fail(ctx context.Context, task *domain.Task, execErr error) {
	if IsPanic(execErr) {
		var panicErr PanicError
		errors.As(execErr, &panicErr)
		w.cfg.ErrorHandler.HandlePanic(ctx, task, panicErr.Value, panicErr.StackTrace)
	} else {
		w.cfg.ErrorHandler.HandleError(ctx, task, execErr)
	}

	now := time.Now().UTC()
	errText := formatError(execErr)

	// Only the retry-eligible branch advances retry_count; the terminal
	// branch (spec.md §4.6 "Else (c >= M)") changes state/error/completed_at
	// and leaves retry_count untouched, preserving the retry_count <=
	// max_retries invariant (spec.md §3).
	retryCount := task.RetryCount
	var nextScheduleAt *time.Time
	if task.RetryCount < task.MaxRetries {
		retryCount = task.RetryCount + 1
		delay := calculateRetryDelay(retryCount, w.cfg.BaseRetryDelay, w.cfg.RetryMultiplier)
		t := now.Add(delay)
		nextScheduleAt = &t
	}

	if err := w.store.RecordFailure(ctx, task.ID, errText, now, nextScheduleAt, retryCount); err != nil {
		slog.ErrorContext(ctx, "failed to record task failure",
			"task_id", task.ID, "error", err)
	}
}

// formatError renders an execution error as the class-name + message (+
// stack trace, for panics) string spec.md §4.6 requires, stored verbatim.
func formatError(err error) string {
	if IsPanic(err) {
		var panicErr PanicError
		errors.As(err, &panicErr)
		return fmt.Sprintf("PanicError: %s\n%s", panicErr.Error(), panicErr.StackTrace)
	}
	if IsTimeout(err) {
		return fmt.Sprintf("TimeoutError: %s", err.Error())
	}
	return fmt.Sprintf("%T: %s", err, err.Error())
}
