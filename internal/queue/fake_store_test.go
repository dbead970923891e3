package queue

import (
	"context"
	"sync"
	"time"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/store"
)

// fakeStore is an in-memory store.Store good enough to exercise Queue
// without a live Postgres instance, mirroring the teacher's in-memory
// Repository fakes for its worker package tests.
type fakeStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[string]*domain.Task)}
}

func (f *fakeStore) Insert(_ context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeStore) ClaimOne(_ context.Context, _ string, _ time.Time, _ time.Duration) (*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, filters store.Filters, limit int) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if filters.State != nil && t.State != *filters.State {
			continue
		}
		if filters.Name != nil && t.Name != *filters.Name {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id string, result *domain.ResultEnvelope, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.State = domain.StateCompleted
	t.Result = result
	t.CompletedAt = &now
	return nil
}

func (f *fakeStore) RecordFailure(_ context.Context, id string, errText string, now time.Time, nextScheduleAt *time.Time, newRetryCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.State = domain.StateFailed
	t.Error = &errText
	t.RetryCount = newRetryCount
	if nextScheduleAt != nil {
		t.ScheduledAt = *nextScheduleAt
	} else {
		t.CompletedAt = &now
	}
	return nil
}

func (f *fakeStore) ListTerminalFailed(_ context.Context, limit int) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.State == domain.StateFailed && t.RetryCount >= t.MaxRetries {
			cp := *t
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListArchivable(_ context.Context, _ time.Time, _ int) ([]*domain.Task, error) {
	return nil, nil
}

func (f *fakeStore) DeleteArchived(_ context.Context, _ []string) error { return nil }

func (f *fakeStore) ArchiveCursor(_ context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeStore) SetArchiveCursor(_ context.Context, _ time.Time) error { return nil }
