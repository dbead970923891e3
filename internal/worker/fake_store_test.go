package worker

import (
	"context"
	"sync"
	"time"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/store"
)

// fakeStore serves a fixed queue of claimable tasks and records the
// completed/failed outcomes the worker writes back, mirroring the
// teacher's in-memory Repository fakes for its worker package tests.
type fakeStore struct {
	mu      sync.Mutex
	pending []*domain.Task

	completed map[string]*domain.ResultEnvelope
	failed    map[string]failureRecord
}

type failureRecord struct {
	errText        string
	nextScheduleAt *time.Time
	retryCount     int
}

func newFakeStore(tasks ...*domain.Task) *fakeStore {
	return &fakeStore{
		pending:   tasks,
		completed: make(map[string]*domain.ResultEnvelope),
		failed:    make(map[string]failureRecord),
	}
}

func (f *fakeStore) Insert(_ context.Context, _ *domain.Task) error { return nil }

func (f *fakeStore) ClaimOne(_ context.Context, workerID string, now time.Time, lockDuration time.Duration) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, nil
	}
	t := f.pending[0]
	f.pending = f.pending[1:]
	t.State = domain.StateRunning
	t.WorkerID = &workerID
	until := now.Add(lockDuration)
	t.LockedUntil = &until
	return t, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*domain.Task, error) {
	return nil, domain.ErrTaskNotFound
}

func (f *fakeStore) List(_ context.Context, _ store.Filters, _ int) ([]*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id string, result *domain.ResultEnvelope, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id] = result
	return nil
}

func (f *fakeStore) RecordFailure(_ context.Context, id string, errText string, _ time.Time, nextScheduleAt *time.Time, newRetryCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = failureRecord{errText: errText, nextScheduleAt: nextScheduleAt, retryCount: newRetryCount}
	return nil
}

func (f *fakeStore) ListTerminalFailed(_ context.Context, _ int) ([]*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) ListArchivable(_ context.Context, _ time.Time, _ int) ([]*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) DeleteArchived(_ context.Context, _ []string) error { return nil }

func (f *fakeStore) ArchiveCursor(_ context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeStore) SetArchiveCursor(_ context.Context, _ time.Time) error { return nil }

func (f *fakeStore) isCompleted(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.completed[id]
	return ok
}

func (f *fakeStore) failureFor(id string) (failureRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.failed[id]
	return r, ok
}
