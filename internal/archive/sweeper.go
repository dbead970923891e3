package archive

import (
	"context"
	"log/slog"
	"time"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/store"
)

// sweepBatchSize caps how many rows one sweep pass archives, mirroring the
// teacher's preference for bounded batch operations over unbounded scans.
const sweepBatchSize = 500

// blobWriter is the one Archiver method Sweeper depends on — owned here,
// not by the archive client, the same Dependency Inversion split the
// teacher's worker package applies to its own Repository interface. Lets
// tests substitute a fake in place of a real GCS-backed Archiver.
type blobWriter interface {
	Put(ctx context.Context, task *domain.Task) error
}

// Sweeper periodically exports terminal task rows older than Retention to
// cold storage, then deletes them from Postgres. Repurposes the teacher's
// periodic-heartbeat goroutine shape (internal/application/worker's
// ExtendAvailability ticker) for a sweep loop instead of a lease renewal —
// spec.md §5 rules out lease renewal for the claim protocol itself, but
// names no such restriction for archival housekeeping.
type Sweeper struct {
	store     store.Store
	archiver  blobWriter
	retention time.Duration
	interval  time.Duration
}

// NewSweeper constructs a Sweeper. retention is how long a terminal row
// stays live in Postgres before being swept; interval is how often the
// sweep runs.
func NewSweeper(s store.Store, a blobWriter, retention, interval time.Duration) *Sweeper {
	return &Sweeper{store: s, archiver: a, retention: retention, interval: interval}
}

// Run drives the sweep loop until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := sw.Sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "archive sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "archive sweep completed", "archived", n)
			}
		}
	}
}

// Sweep archives and deletes one batch of eligible terminal rows and
// returns the number of rows archived. The cursor moves to the newest
// completed_at among the rows archived, or to the cutoff when no row is
// eligible; a row whose Put fails stays in Postgres for a later sweep.
func (sw *Sweeper) Sweep(ctx context.Context) (int, error) {
	cursor, err := sw.store.ArchiveCursor(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-sw.retention)
	if cutoff.Before(cursor) {
		return 0, nil
	}

	tasks, err := sw.store.ListArchivable(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		if err := sw.store.SetArchiveCursor(ctx, cutoff); err != nil {
			return 0, err
		}
		return 0, nil
	}

	ids := make([]string, 0, len(tasks))
	watermark := cursor
	for _, t := range tasks {
		if err := sw.archiver.Put(ctx, t); err != nil {
			slog.ErrorContext(ctx, "failed to archive task, will retry next sweep",
				"task_id", t.ID, "error", err)
			continue
		}
		ids = append(ids, t.ID)
		if t.CompletedAt != nil && t.CompletedAt.After(watermark) {
			watermark = *t.CompletedAt
		}
	}

	if len(ids) == 0 {
		return 0, nil
	}
	if err := sw.store.DeleteArchived(ctx, ids); err != nil {
		return 0, err
	}
	if err := sw.store.SetArchiveCursor(ctx, watermark); err != nil {
		return 0, err
	}
	return len(ids), nil
}
