package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/registry"
)

func newTestWorker(t *testing.T, fs *fakeStore, reg *registry.Registry) *Worker {
	t.Helper()
	cfg := DefaultConfig("test-worker")
	cfg.BaseRetryDelay = time.Second
	cfg.RetryMultiplier = 2.0
	return New(fs, reg, cfg)
}

func TestWorker_Execute_Success(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("h", func(_ context.Context, _ map[string]any) (any, error) {
		return 42, nil
	}, registry.Schema{}))

	task := &domain.Task{ID: "t1", Name: "h", MaxRetries: 3}
	fs := newFakeStore()
	w := newTestWorker(t, fs, reg)

	w.execute(context.Background(), task)

	assert.True(t, fs.isCompleted("t1"))
}

func TestWorker_Execute_RetryEligibleFailure(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("h", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	}, registry.Schema{}))

	task := &domain.Task{ID: "t1", Name: "h", RetryCount: 0, MaxRetries: 3}
	fs := newFakeStore()
	w := newTestWorker(t, fs, reg)

	w.execute(context.Background(), task)

	rec, ok := fs.failureFor("t1")
	require.True(t, ok)
	assert.Equal(t, 1, rec.retryCount)
	require.NotNil(t, rec.nextScheduleAt)
	assert.Contains(t, rec.errText, "boom")
}

func TestWorker_Execute_PermanentFailureAfterRetriesExhausted(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("h", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	}, registry.Schema{}))

	task := &domain.Task{ID: "t1", Name: "h", RetryCount: 3, MaxRetries: 3}
	fs := newFakeStore()
	w := newTestWorker(t, fs, reg)

	w.execute(context.Background(), task)

	rec, ok := fs.failureFor("t1")
	require.True(t, ok)
	assert.Equal(t, 3, rec.retryCount, "retry_count must not exceed max_retries once terminal")
	assert.Nil(t, rec.nextScheduleAt, "retries exhausted: row becomes terminal, no next schedule")
}

func TestWorker_Execute_TimeoutRecordsFailure(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("h", func(ctx context.Context, _ map[string]any) (any, error) {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return nil, nil
	}, registry.Schema{}))

	timeoutSeconds := 0 // effectively immediate timeout without sleeping the test too long
	task := &domain.Task{ID: "t1", Name: "h", MaxRetries: 3, TimeoutSeconds: &timeoutSeconds}
	fs := newFakeStore()
	w := newTestWorker(t, fs, reg)

	w.execute(context.Background(), task)

	rec, ok := fs.failureFor("t1")
	require.True(t, ok)
	assert.Contains(t, rec.errText, "timeout")
}

func TestWorker_Execute_PanicRecovered(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("h", func(_ context.Context, _ map[string]any) (any, error) {
		panic("kaboom")
	}, registry.Schema{}))

	task := &domain.Task{ID: "t1", Name: "h", RetryCount: 0, MaxRetries: 3}
	fs := newFakeStore()
	w := newTestWorker(t, fs, reg)

	w.execute(context.Background(), task)

	rec, ok := fs.failureFor("t1")
	require.True(t, ok)
	assert.Contains(t, rec.errText, "PanicError")
	assert.Contains(t, rec.errText, "kaboom")
}

func TestWorker_Execute_HandlerNotRegistered(t *testing.T) {
	reg := registry.New()
	task := &domain.Task{ID: "t1", Name: "missing", RetryCount: 0, MaxRetries: 3}
	fs := newFakeStore()
	w := newTestWorker(t, fs, reg)

	w.execute(context.Background(), task)

	rec, ok := fs.failureFor("t1")
	require.True(t, ok)
	assert.Contains(t, rec.errText, "handler not registered")
}

func TestWorker_Run_ClaimsAndDrainsOnCancel(t *testing.T) {
	reg := registry.New()
	done := make(chan struct{})
	require.NoError(t, reg.Register("h", func(_ context.Context, _ map[string]any) (any, error) {
		close(done)
		return nil, nil
	}, registry.Schema{}))

	task := &domain.Task{ID: "t1", Name: "h", MaxRetries: 3}
	fs := newFakeStore(task)

	cfg := DefaultConfig("test-worker")
	cfg.PollInterval = 10 * time.Millisecond
	w := New(fs, reg, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was never dispatched")
	}

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	assert.True(t, fs.isCompleted("t1"))
}
