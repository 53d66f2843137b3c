package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/taskqueue/internal/clock"
	"github.com/phrazzld/taskqueue/internal/events"
)

// DuplicatePolicy decides what Submit does with an ID that is already
// registered.
type DuplicatePolicy string

const (
	// DuplicateReject refuses the submission with ErrDuplicateTask.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateOverwrite registers the new task under the ID, replacing the
	// previous record in the registry. Both records are still processed.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// ParseDuplicatePolicy converts a configuration value into a DuplicatePolicy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DuplicateReject, DuplicateOverwrite:
		return p, nil
	case "":
		return DuplicateReject, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q", s)
}

// Manager owns the pending queue, the registry of every submitted task and
// the order-tracking list used for position lookups. Exactly one processing
// loop (Run) drains the queue.
//
// The registry is never pruned: every task stays reachable through Get for
// the lifetime of the Manager.
type Manager struct {
	mu       sync.RWMutex
	registry map[string]*Task
	order    []string
	closed   bool
	loopDone chan struct{}

	queue   *TaskQueue
	running atomic.Bool

	clock     clock.Clock
	logger    *slog.Logger
	emitter   events.EventEmitter
	duplicate DuplicatePolicy
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock sets the clock used for started_at and completed_at
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithEmitter sets the emitter that receives every status transition
func WithEmitter(e events.EventEmitter) Option {
	return func(m *Manager) { m.emitter = e }
}

// WithDuplicatePolicy sets how Submit treats an already registered ID
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(m *Manager) { m.duplicate = p }
}

// NewManager creates a Manager with an empty queue and registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		registry:  make(map[string]*Task),
		order:     make([]string, 0),
		clock:     clock.System{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		emitter:   events.NopEmitter{},
		duplicate: DuplicateReject,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "task_manager")
	m.queue = NewTaskQueue(m.logger)
	return m
}

// Submit queues a dangling task for processing, registers it under its ID
// and records its place in line. A task built without WithTaskClock takes
// on the Manager's clock. Submit never blocks and may be called
// before, during or after Run.
func (m *Manager) Submit(ctx context.Context, task *Task) error {
	if task == nil || task.ID() == "" || isNilWork(task.Work()) {
		return fmt.Errorf("%w: task needs an id and a unit of work", ErrInvalidTask)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if _, exists := m.registry[task.ID()]; exists {
		if m.duplicate != DuplicateOverwrite {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID())
		}
		m.logger.Warn("overwriting registered task", "task_id", task.ID())
	}
	// The status moves first so the loop never sees a dangling task.
	if err := task.markQueued(); err != nil {
		m.mu.Unlock()
		return err
	}
	task.adoptClock(m.clock)
	if err := m.queue.Enqueue(task); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to enqueue task %s: %w", task.ID(), err)
	}
	m.registry[task.ID()] = task
	m.order = append(m.order, task.ID())
	position := len(m.order)
	m.mu.Unlock()

	m.logger.Debug("task submitted", "task_id", task.ID(), "position", position)
	m.emit(ctx, events.NewTaskEvent(task.ID(),
		string(TaskStatusDangling), string(TaskStatusQueued), task.CreatedAt()))
	return nil
}

// Get returns the registered task with the given ID. The returned task is
// the live record: later updates by the processing loop are visible through
// it.
func (m *Manager) Get(taskID string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.registry[taskID]
	return task, ok
}

// Lookup is Get with a *NotFoundError for unknown IDs.
func (m *Manager) Lookup(taskID string) (*Task, error) {
	if task, ok := m.Get(taskID); ok {
		return task, nil
	}
	return nil, &NotFoundError{TaskID: taskID}
}

// Position returns the 1-based place of a task among those still waiting to
// be processed, where 1 means next in line. It returns -1 for tasks that
// are processing, finished, or were never submitted.
func (m *Manager) Position(taskID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := slices.Index(m.order, taskID)
	if idx < 0 {
		return -1
	}
	return idx + 1
}

// Len returns the number of tasks waiting to be processed
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Running reports whether a processing loop is active
func (m *Manager) Running() bool {
	return m.running.Load()
}

// Wait blocks until every submitted task has been processed, or ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	return m.queue.Join(ctx)
}

// Reset forgets every registered task and drops those still waiting.
// A task being processed at the time finishes normally but is no longer
// reachable through Get. Dropped tasks stay in the queued status.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := m.queue.Clear()
	m.registry = make(map[string]*Task)
	m.order = make([]string, 0)
	m.logger.Info("task manager reset", "dropped", dropped)
}

// removeFromOrder deletes the first occurrence of taskID from the order
// list. It is a no-op if the ID is absent.
func (m *Manager) removeFromOrder(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := slices.Index(m.order, taskID); idx >= 0 {
		m.order = slices.Delete(m.order, idx, idx+1)
	}
}

func (m *Manager) emit(ctx context.Context, event *events.TaskEvent) {
	// Handler failures are logged by the emitter and never affect the task.
	_ = m.emitter.EmitEvent(ctx, event)
}

func isNilWork(w Work) bool {
	switch c := w.(type) {
	case nil:
		return true
	case WorkFunc:
		return c == nil
	case Call:
		return c.Fn == nil
	case *Call:
		return c == nil || c.Fn == nil
	}
	return false
}
