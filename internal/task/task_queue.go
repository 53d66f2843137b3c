package task

import (
	"context"
	"log/slog"
	"sync"
)

// TaskQueue is an unbounded FIFO of tasks with a single blocking consumer.
// Enqueue never blocks and is safe for any number of concurrent producers.
// Like a channel it offers no positional inspection; callers that need a
// task's place in line keep their own record of the order.
type TaskQueue struct {
	mu     sync.Mutex
	items  []*Task
	logger *slog.Logger
	closed bool

	// ready holds a token while items may be available
	ready chan struct{}
	// done is closed by Close to wake a blocked consumer
	done chan struct{}

	// unfinished counts items enqueued but not yet marked Done
	unfinished int
	// idle is closed whenever unfinished drops to zero
	idle chan struct{}
}

// NewTaskQueue creates an empty, open task queue
func NewTaskQueue(logger *slog.Logger) *TaskQueue {
	idle := make(chan struct{})
	close(idle)
	return &TaskQueue{
		items:  make([]*Task, 0),
		logger: logger,
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		idle:   idle,
	}
}

// Enqueue appends a task to the back of the queue.
// Returns ErrQueueClosed once the queue has been closed.
func (q *TaskQueue) Enqueue(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, task)
	if q.unfinished == 0 {
		q.idle = make(chan struct{})
	}
	q.unfinished++
	q.signalLocked()

	q.logger.Debug("task enqueued",
		"task_id", task.ID(),
		"queue_len", len(q.items))
	return nil
}

// Dequeue removes and returns the task at the front of the queue, blocking
// until one is available. It returns ctx.Err() if ctx is cancelled first and
// ErrQueueClosed once the queue is closed, even if items remain.
func (q *TaskQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		if len(q.items) > 0 {
			task := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signalLocked()
			}
			q.mu.Unlock()
			return task, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.done:
			return nil, ErrQueueClosed
		case <-q.ready:
		}
	}
}

// Done marks one dequeued task as fully processed.
func (q *TaskQueue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished == 0 {
		return
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}

// Join blocks until every enqueued task has been marked Done, or ctx ends.
func (q *TaskQueue) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of tasks waiting to be dequeued
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every waiting task. Tasks already dequeued still count as
// unfinished until they are marked Done.
func (q *TaskQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.items)
	q.items = make([]*Task, 0)
	q.unfinished -= dropped
	if dropped > 0 && q.unfinished == 0 {
		close(q.idle)
	}
	return dropped
}

// Close closes the task queue, preventing further submission and delivery.
// Tasks still waiting stay in the queue.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
		q.logger.Info("task queue closed", "remaining", len(q.items))
	}
}

// Closed reports whether Close has been called
func (q *TaskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *TaskQueue) signalLocked() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
