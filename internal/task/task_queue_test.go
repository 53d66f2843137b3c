package task

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueuedTask(id string) *Task {
	return NewTask(id, constWork(id))
}

func TestNewTaskQueue(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())

	assert.NotNil(t, queue)
	assert.Equal(t, 0, queue.Len())
	assert.False(t, queue.Closed())
	assert.NoError(t, queue.Join(context.Background()), "empty queue is idle")
}

func TestTaskQueue_FIFO(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())

	for i := range 5 {
		require.NoError(t, queue.Enqueue(newQueuedTask(fmt.Sprintf("t%d", i))))
	}
	assert.Equal(t, 5, queue.Len())

	ctx := context.Background()
	for i := range 5 {
		task, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("t%d", i), task.ID())
	}
	assert.Equal(t, 0, queue.Len())
}

func TestTaskQueue_DequeueBlocks(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())

	got := make(chan *Task, 1)
	go func() {
		task, err := queue.Dequeue(context.Background())
		if err == nil {
			got <- task
		}
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned before anything was enqueued")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, queue.Enqueue(newQueuedTask("late")))

	select {
	case task := <-got:
		assert.Equal(t, "late", task.ID())
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestTaskQueue_DequeueCancelled(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	task, err := queue.Dequeue(ctx)
	assert.Nil(t, task)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())

	require.NoError(t, queue.Enqueue(newQueuedTask("kept")))

	queue.Close()
	assert.True(t, queue.Closed())

	// Try to enqueue after closing
	err := queue.Enqueue(newQueuedTask("rejected"))
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Waiting tasks stay put but are no longer delivered
	task, err := queue.Dequeue(context.Background())
	assert.Nil(t, task)
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Equal(t, 1, queue.Len())

	// Closing twice is safe
	queue.Close()
}

func TestClose_WakesConsumer(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())

	errCh := make(chan error, 1)
	go func() {
		_, err := queue.Dequeue(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	queue.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken by Close")
	}
}

func TestTaskQueue_Join(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(newQueuedTask("a")))
	require.NoError(t, queue.Enqueue(newQueuedTask("b")))

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, queue.Join(short), context.DeadlineExceeded)

	for range 2 {
		_, err := queue.Dequeue(ctx)
		require.NoError(t, err)
	}
	// Dequeued but not done still counts as unfinished
	short2, cancel2 := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel2()
	assert.ErrorIs(t, queue.Join(short2), context.DeadlineExceeded)

	queue.Done()
	queue.Done()
	assert.NoError(t, queue.Join(ctx))

	// Extra Done calls are ignored
	queue.Done()
	require.NoError(t, queue.Enqueue(newQueuedTask("c")))
	short3, cancel3 := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel3()
	assert.ErrorIs(t, queue.Join(short3), context.DeadlineExceeded)
}

func TestTaskQueue_Clear(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, queue.Enqueue(newQueuedTask(id)))
	}
	_, err := queue.Dequeue(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, queue.Clear())
	assert.Equal(t, 0, queue.Len())

	// The dequeued task is still outstanding
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, queue.Join(short), context.DeadlineExceeded)

	queue.Done()
	assert.NoError(t, queue.Join(ctx))
}

func TestTaskQueue_ConcurrentProducers(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())

	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				_ = queue.Enqueue(newQueuedTask(fmt.Sprintf("p%d-%d", p, i)))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, queue.Len())

	// Each producer's tasks come out in the order it enqueued them.
	next := make(map[string]int)
	ctx := context.Background()
	for range producers * perProducer {
		task, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		var p, i int
		_, err = fmt.Sscanf(task.ID(), "p%d-%d", &p, &i)
		require.NoError(t, err)
		key := fmt.Sprint(p)
		assert.Equal(t, next[key], i)
		next[key] = i + 1
	}
}
