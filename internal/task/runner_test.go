package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gate returns work that blocks until release is closed.
func gate(result any) (Work, chan struct{}, chan struct{}) {
	entered := make(chan struct{})
	release := make(chan struct{})
	work := WorkFunc(func(ctx context.Context) (any, error) {
		close(entered)
		select {
		case <-release:
			return result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	return work, entered, release
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func TestManager_RunCompletesTask(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	task := NewTask("sum", NewCall(sum, 1, 2))
	require.NoError(t, m.Submit(context.Background(), task))

	startManager(t, m)
	waitIdle(t, m)

	assert.Equal(t, TaskStatusCompleted, task.Status())
	assert.Equal(t, 3, task.Result())

	started, ok := task.StartedAt()
	require.True(t, ok)
	completed, ok := task.CompletedAt()
	require.True(t, ok)
	assert.False(t, completed.Before(started))
	assert.False(t, started.Before(task.CreatedAt()))
	assert.Equal(t, -1, m.Position("sum"))
}

func TestManager_FailureDoesNotStopLoop(t *testing.T) {
	t.Parallel()

	rec := &recordingEmitter{}
	m := newTestManager(WithEmitter(rec))
	ctx := context.Background()

	failing := NewTask("bad", WorkFunc(func(context.Context) (any, error) {
		return nil, errors.New("boom")
	}))
	good := NewTask("good", NewCall(sum, 2, 2))
	require.NoError(t, m.Submit(ctx, failing))
	require.NoError(t, m.Submit(ctx, good))

	startManager(t, m)
	waitIdle(t, m)

	assert.Equal(t, TaskStatusFailed, failing.Status())
	assert.Equal(t, map[string]string{"error": "boom"}, failing.Result())
	_, ok := failing.CompletedAt()
	assert.True(t, ok)

	assert.Equal(t, TaskStatusCompleted, good.Status())
	assert.Equal(t, 4, good.Result())

	assert.Equal(t,
		[]string{"dangling->queued", "queued->processing", "processing->failed"},
		rec.transitions("bad"))
	assert.Equal(t,
		[]string{"dangling->queued", "queued->processing", "processing->completed"},
		rec.transitions("good"))
}

func TestManager_FailedEventCarriesError(t *testing.T) {
	t.Parallel()

	rec := &recordingEmitter{}
	m := newTestManager(WithEmitter(rec))
	require.NoError(t, m.Submit(context.Background(), NewTask("bad",
		WorkFunc(func(context.Context) (any, error) { return nil, errors.New("boom") }))))

	startManager(t, m)
	waitIdle(t, m)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, "failed", last.To)
	assert.Equal(t, "boom", last.Error)
}

func TestManager_FIFO(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	ctx := context.Background()

	var mu sync.Mutex
	var order []string
	record := func(id string) Work {
		return WorkFunc(func(context.Context) (any, error) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil, nil
		})
	}

	ids := []string{"one", "two", "three", "four"}
	for _, id := range ids {
		require.NoError(t, m.Submit(ctx, NewTask(id, record(id))))
	}

	startManager(t, m)
	waitIdle(t, m)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ids, order)
}

func TestManager_PositionWhileProcessing(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	ctx := context.Background()

	work, entered, release := gate("done")
	first := NewTask("first", work)
	second := NewTask("second", constWork(2))
	require.NoError(t, m.Submit(ctx, first))
	require.NoError(t, m.Submit(ctx, second))

	startManager(t, m)
	waitFor(t, entered)

	assert.Equal(t, TaskStatusProcessing, first.Status())
	assert.Equal(t, -1, m.Position("first"))
	assert.Equal(t, 1, m.Position("second"))
	assert.Equal(t, TaskStatusQueued, second.Status())

	close(release)
	waitIdle(t, m)

	assert.Equal(t, "done", first.Result())
	assert.Equal(t, TaskStatusCompleted, second.Status())
	assert.Equal(t, -1, m.Position("second"))
}

func TestManager_SubmitWhileRunning(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	startManager(t, m)

	task := NewTask("late", NewCall(sum, 5, 6))
	require.NoError(t, m.Submit(context.Background(), task))
	waitIdle(t, m)

	assert.Equal(t, 11, task.Result())
}

func TestManager_RecoversPanic(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	ctx := context.Background()

	panicky := NewTask("panicky", WorkFunc(func(context.Context) (any, error) {
		panic("kaboom")
	}))
	after := NewTask("after", constWork("ok"))
	require.NoError(t, m.Submit(ctx, panicky))
	require.NoError(t, m.Submit(ctx, after))

	startManager(t, m)
	waitIdle(t, m)

	assert.Equal(t, TaskStatusFailed, panicky.Status())
	assert.EqualError(t, panicky.Err(), "panic: kaboom")
	assert.Equal(t, TaskStatusCompleted, after.Status())
}

func TestManager_RunAlreadyRunning(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	startManager(t, m)

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.True(t, m.Running())
}

func TestManager_RunCancelled(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	work, entered, _ := gate(nil)
	task := NewTask("stuck", work)
	waiting := NewTask("waiting", constWork(1))
	require.NoError(t, m.Submit(context.Background(), task))
	require.NoError(t, m.Submit(context.Background(), waiting))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	waitFor(t, entered)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, TaskStatusFailed, task.Status())
	assert.Equal(t, map[string]string{"error": "context canceled"}, task.Result())
	assert.Equal(t, TaskStatusQueued, waiting.Status())
	assert.False(t, m.Running())
}

func TestManager_Shutdown(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	ctx := context.Background()

	work, entered, release := gate("finished")
	current := NewTask("current", work)
	pending := NewTask("pending", constWork(1))
	require.NoError(t, m.Submit(ctx, current))
	require.NoError(t, m.Submit(ctx, pending))

	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()
	waitFor(t, entered)

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- m.Shutdown(ctx) }()

	require.Eventually(t, m.queue.Closed, time.Second, time.Millisecond)
	err := m.Submit(ctx, NewTask("rejected", constWork(0)))
	assert.ErrorIs(t, err, ErrManagerClosed)

	close(release)

	require.NoError(t, <-shutdownErr)
	require.NoError(t, <-errCh)

	assert.Equal(t, TaskStatusCompleted, current.Status())
	assert.Equal(t, "finished", current.Result())
	assert.Equal(t, TaskStatusQueued, pending.Status())
	assert.Equal(t, 1, m.Position("pending"))

	// A closed manager cannot be restarted
	assert.ErrorIs(t, m.Run(ctx), ErrManagerClosed)
}

func TestManager_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	work, entered, release := gate(nil)
	defer close(release)
	require.NoError(t, m.Submit(context.Background(), NewTask("slow", work)))

	go func() { _ = m.Run(context.Background()) }()
	waitFor(t, entered)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_ShutdownWithoutRun(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.ErrorIs(t, m.Submit(context.Background(), NewTask("x", constWork(1))), ErrManagerClosed)
}

func TestManager_Clock(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	m := newTestManager(WithClock(clk))
	task := NewTask("timed", WorkFunc(func(context.Context) (any, error) {
		clk.Advance(3 * time.Second)
		return nil, nil
	}), WithTaskClock(clk))
	require.NoError(t, m.Submit(context.Background(), task))

	clk.Advance(time.Second)
	startManager(t, m)
	waitIdle(t, m)

	d, ok := task.ProcessingDuration()
	require.True(t, ok)
	assert.Equal(t, int64(3), d)
	assert.Equal(t, int64(4), task.TotalDuration())
}
