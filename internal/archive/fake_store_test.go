package archive

import (
	"context"
	"sync"
	"time"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/store"
)

// fakeStore backs the sweeper tests: a fixed archivable set plus a mutable
// cursor and a record of what got deleted.
type fakeStore struct {
	mu         sync.Mutex
	archivable []*domain.Task
	cursor     time.Time
	deleted    []string
}

func newFakeStore(tasks ...*domain.Task) *fakeStore {
	return &fakeStore{archivable: tasks}
}

func (f *fakeStore) Insert(_ context.Context, _ *domain.Task) error { return nil }

func (f *fakeStore) ClaimOne(_ context.Context, _ string, _ time.Time, _ time.Duration) (*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) Get(_ context.Context, _ string) (*domain.Task, error) {
	return nil, domain.ErrTaskNotFound
}

func (f *fakeStore) List(_ context.Context, _ store.Filters, _ int) ([]*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, _ string, _ *domain.ResultEnvelope, _ time.Time) error {
	return nil
}

func (f *fakeStore) RecordFailure(_ context.Context, _ string, _ string, _ time.Time, _ *time.Time, _ int) error {
	return nil
}

func (f *fakeStore) ListTerminalFailed(_ context.Context, _ int) ([]*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) ListArchivable(_ context.Context, cutoff time.Time, limit int) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.archivable {
		if t.CompletedAt != nil && !t.CompletedAt.After(cutoff) {
			out = append(out, t)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteArchived(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	remaining := f.archivable[:0]
	for _, t := range f.archivable {
		keep := true
		for _, id := range ids {
			if t.ID == id {
				keep = false
				break
			}
		}
		if keep {
			remaining = append(remaining, t)
		}
	}
	f.archivable = remaining
	return nil
}

func (f *fakeStore) ArchiveCursor(_ context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor, nil
}

func (f *fakeStore) SetArchiveCursor(_ context.Context, watermark time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = watermark
	return nil
}

// fakeBlobWriter records every Put call; errOn forces a failure for a
// specific task ID so the sweeper's skip-and-retry-next-sweep path can be
// exercised.
type fakeBlobWriter struct {
	mu    sync.Mutex
	put   []string
	errOn map[string]bool
}

func newFakeBlobWriter(errOn ...string) *fakeBlobWriter {
	m := make(map[string]bool, len(errOn))
	for _, id := range errOn {
		m[id] = true
	}
	return &fakeBlobWriter{errOn: m}
}

func (w *fakeBlobWriter) Put(_ context.Context, task *domain.Task) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.errOn[task.ID] {
		return errPutFailed
	}
	w.put = append(w.put, task.ID)
	return nil
}

func (w *fakeBlobWriter) puts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.put))
	copy(out, w.put)
	return out
}
