// Package store declares the persistence contract the queue and worker
// packages depend on. It is owned by its consumers, not by the concrete
// implementation in internal/store/postgres — the same Dependency
// Inversion split the teacher's worker package uses for its own
// Repository interface.
package store

import (
	"context"
	"time"

	"github.com/arashn/taskqueue/internal/domain"
)

// Filters narrows a List call. Nil fields are unconstrained.
type Filters struct {
	State *domain.State
	Name  *string
}

// Store is the persistence contract of the task table: insert, the atomic
// claim, read-only projections, and the two terminal-outcome writers.
type Store interface {
	// Insert writes a new pending row. task.ID is already populated by the
	// caller.
	Insert(ctx context.Context, task *domain.Task) error

	// ClaimOne atomically selects at most one due row and marks it
	// running, owned by workerID until now+lockDuration. Returns (nil,
	// nil) when no row is due.
	ClaimOne(ctx context.Context, workerID string, now time.Time, lockDuration time.Duration) (*domain.Task, error)

	// Get returns the row with the given id, or domain.ErrTaskNotFound.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// List returns rows matching filters, most recently created first,
	// capped at limit.
	List(ctx context.Context, filters Filters, limit int) ([]*domain.Task, error)

	// MarkCompleted records a successful terminal outcome.
	MarkCompleted(ctx context.Context, id string, result *domain.ResultEnvelope, now time.Time) error

	// RecordFailure records a failure outcome. nextScheduleAt is nil when
	// the row is now terminal (retries exhausted), in which case
	// newRetryCount is the row's unchanged retry_count; otherwise
	// nextScheduleAt is the backoff-computed next eligible claim time and
	// newRetryCount is retry_count+1.
	RecordFailure(ctx context.Context, id string, errText string, now time.Time, nextScheduleAt *time.Time, newRetryCount int) error

	// ListTerminalFailed returns failed rows with retry_count >=
	// max_retries, most recently completed first, capped at limit.
	ListTerminalFailed(ctx context.Context, limit int) ([]*domain.Task, error)

	// ListArchivable returns terminal rows (completed, or failed with
	// retries exhausted) whose completed_at is at or before cutoff,
	// oldest first, capped at limit. Used by the archiver's sweep.
	ListArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error)

	// DeleteArchived permanently removes the given rows. Called only
	// after the archiver has durably written them to cold storage.
	DeleteArchived(ctx context.Context, ids []string) error

	// ArchiveCursor returns the completed_at watermark the archiver has
	// swept past, so a restart resumes instead of rescanning the table.
	ArchiveCursor(ctx context.Context) (time.Time, error)

	// SetArchiveCursor advances the watermark.
	SetArchiveCursor(ctx context.Context, watermark time.Time) error
}
