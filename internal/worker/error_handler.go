package worker

import (
	"context"
	"log/slog"

	"github.com/arashn/taskqueue/internal/domain"
)

// ErrorHandler is a pluggable hook for telemetry/alerting on task errors
// and panics. It cannot change the retry/terminal outcome — that is
// determined entirely by the row's retry_count/max_retries per spec.md
// §4.6 — it exists only to let callers wire in their own error tracking.
type ErrorHandler interface {
	HandleError(ctx context.Context, task *domain.Task, err error)
	HandlePanic(ctx context.Context, task *domain.Task, panicVal any, stackTrace string)
}

// DefaultErrorHandler logs errors and panics with structured logging.
type DefaultErrorHandler struct{}

func (h *DefaultErrorHandler) HandleError(ctx context.Context, task *domain.Task, err error) {
	slog.ErrorContext(ctx, "task execution failed",
		slog.String("task_id", task.ID),
		slog.String("name", task.Name),
		slog.Int("retry_count", task.RetryCount),
		slog.String("error", err.Error()),
		slog.Bool("retryable", IsRetryable(err)),
	)
}

func (h *DefaultErrorHandler) HandlePanic(ctx context.Context, task *domain.Task, panicVal any, stackTrace string) {
	slog.ErrorContext(ctx, "task execution panicked",
		slog.String("task_id", task.ID),
		slog.String("name", task.Name),
		slog.Any("panic_value", panicVal),
		slog.String("stack_trace", stackTrace),
	)
}
