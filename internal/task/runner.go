package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/taskqueue/internal/events"
	"github.com/phrazzld/taskqueue/internal/redact"
)

// Run is the processing loop. It takes tasks off the queue in submission
// order and executes them one at a time until ctx is cancelled or Shutdown
// is called. A failing task never stops the loop.
//
// The context passed to each unit of work is derived from ctx, so
// cancelling ctx also cancels the task in progress. Only one Run may be
// active per Manager; a second call returns ErrAlreadyRunning.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	done := make(chan struct{})
	m.loopDone = done
	m.mu.Unlock()
	defer close(done)

	m.logger.Info("processing loop started")

	for {
		if err := ctx.Err(); err != nil {
			m.logger.Info("processing loop cancelled", "reason", err)
			return err
		}
		task, err := m.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				m.logger.Info("processing loop stopped", "pending", m.Len())
				return nil
			}
			m.logger.Info("processing loop cancelled", "reason", err)
			return err
		}
		m.processTask(ctx, task)
	}
}

// Shutdown stops the Manager gracefully: new submissions are refused, the
// task in progress is allowed to finish, and Run then returns. Tasks still
// waiting remain queued. If ctx ends before the loop exits, Shutdown returns
// ctx.Err() and the loop keeps finishing its current task in the background.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		m.queue.Close()
	}
	done := m.loopDone
	m.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for processing loop: %w", ctx.Err())
	}
}

// processTask handles execution of a single task. The deferred block always
// runs, whether the work returns, fails or panics.
func (m *Manager) processTask(ctx context.Context, task *Task) {
	logger := m.logger.With("task_id", task.ID())
	start := m.clock.Now()
	started := false

	defer func() {
		if started {
			end := m.clock.Now()
			task.markCompletedAt(end)

			status := task.Status()
			event := events.NewTaskEvent(task.ID(),
				string(TaskStatusProcessing), string(status), end)
			event.Elapsed = end.Sub(start)
			if err := task.Err(); err != nil {
				event.Error = err.Error()
			}
			m.emit(ctx, event)
		} else {
			m.removeFromOrder(task.ID())
		}
		m.queue.Done()
	}()

	if err := task.markProcessing(start); err != nil {
		logger.Error("skipping task that cannot be processed", "error", err)
		return
	}
	started = true
	// A task leaves the line as soon as it starts.
	m.removeFromOrder(task.ID())
	m.emit(ctx, events.NewTaskEvent(task.ID(),
		string(TaskStatusQueued), string(TaskStatusProcessing), start))

	logger.Info("processing task")

	result, err := m.execute(ctx, task)
	duration := m.clock.Now().Sub(start)

	if err != nil {
		logger.Error("task execution failed",
			"error", redact.Error(err),
			"duration_ms", duration.Milliseconds())
		if ferr := task.fail(err); ferr != nil {
			logger.Error("failed to mark task as failed", "error", ferr)
		}
		return
	}

	logger.Info("task completed successfully", "duration_ms", duration.Milliseconds())
	if cerr := task.complete(result); cerr != nil {
		logger.Error("failed to mark task as completed", "error", cerr)
	}
}

// execute runs the task's work, turning a panic into an error.
func (m *Manager) execute(ctx context.Context, task *Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Work().Execute(ctx)
}
