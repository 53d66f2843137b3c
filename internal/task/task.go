package task

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/phrazzld/taskqueue/internal/clock"
)

// ResultErrorKey is the key under which a failed task's result carries the
// error message.
const ResultErrorKey = "error"

// Task represents a unit of background work together with its lifecycle
// state. A Task is shared by reference between the Manager and every caller
// holding it; all accessors are safe for concurrent use and always reflect
// the latest state.
type Task struct {
	mu sync.RWMutex

	id     string
	work   Work
	args   []any
	kwargs map[string]any
	clock  clock.Clock
	// ownClock is false while the task runs on the default clock and may
	// still adopt the Manager's.
	ownClock bool

	status      TaskStatus
	result      any
	err         error
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
}

// TaskOption configures a Task at construction time.
type TaskOption func(*Task)

// WithArgs records positional arguments on the task record.
func WithArgs(args ...any) TaskOption {
	return func(t *Task) { t.args = args }
}

// WithKwargs records named arguments on the task record.
func WithKwargs(kwargs map[string]any) TaskOption {
	return func(t *Task) { t.kwargs = kwargs }
}

// WithTaskClock sets the clock used for created_at and for durations of a
// task that has not finished yet. Without it the task takes on the clock of
// the Manager it is submitted to.
func WithTaskClock(c clock.Clock) TaskOption {
	return func(t *Task) {
		t.clock = c
		t.ownClock = true
	}
}

// NewTask creates a dangling task with the given ID and unit of work.
// When work is a Call its arguments are recorded on the task as well.
func NewTask(id string, work Work, opts ...TaskOption) *Task {
	t := &Task{
		id:     id,
		work:   work,
		status: TaskStatusDangling,
		clock:  clock.System{},
	}
	switch c := work.(type) {
	case Call:
		t.args, t.kwargs = c.Args, c.Kwargs
	case *Call:
		if c != nil {
			t.args, t.kwargs = c.Args, c.Kwargs
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.args == nil {
		t.args = []any{}
	}
	if t.kwargs == nil {
		t.kwargs = map[string]any{}
	}
	t.createdAt = t.clock.Now()
	return t
}

// ID returns the task's identifier
func (t *Task) ID() string {
	return t.id
}

// Work returns the task's unit of work
func (t *Task) Work() Work {
	return t.work
}

// Args returns a copy of the positional arguments
func (t *Task) Args() []any {
	return slices.Clone(t.args)
}

// Kwargs returns a copy of the named arguments
func (t *Task) Kwargs() map[string]any {
	return maps.Clone(t.kwargs)
}

// Status returns the current task status
func (t *Task) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Result returns the value produced by the work once the task completed, or
// a map holding the error message under ResultErrorKey once it failed.
// It is nil while the task is not terminal.
func (t *Task) Result() any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Err returns the error that failed the task, if any.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// CreatedAt returns the construction time of the task.
func (t *Task) CreatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.createdAt
}

// StartedAt returns the time processing began, if it has.
func (t *Task) StartedAt() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startedAt == nil {
		return time.Time{}, false
	}
	return *t.startedAt, true
}

// CompletedAt returns the time the task reached a terminal status, if it has.
func (t *Task) CompletedAt() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.completedAt == nil {
		return time.Time{}, false
	}
	return *t.completedAt, true
}

// ProcessingDuration returns the whole seconds spent processing: up to
// completion if the task finished, otherwise up to now. The second return
// value is false if processing has not started.
func (t *Task) ProcessingDuration() (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startedAt == nil {
		return 0, false
	}
	return wholeSeconds(*t.startedAt, t.endTimeLocked()), true
}

// TotalDuration returns the whole seconds between creation and completion,
// or between creation and now if the task has not finished.
func (t *Task) TotalDuration() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return wholeSeconds(t.createdAt, t.endTimeLocked())
}

func (t *Task) endTimeLocked() time.Time {
	if t.completedAt != nil {
		return *t.completedAt
	}
	return t.clock.Now()
}

func wholeSeconds(from, to time.Time) int64 {
	return int64(to.Sub(from) / time.Second)
}

// transitionLocked moves the task to next. Callers must hold t.mu.
func (t *Task) transitionLocked(next TaskStatus) error {
	if !t.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: task %s from %s to %s", ErrInvalidTransition, t.id, t.status, next)
	}
	t.status = next
	return nil
}

// adoptClock switches a task built on the default clock to c, moving
// created_at into c's location so every timestamp on the record shares it.
func (t *Task) adoptClock(c clock.Clock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ownClock {
		return
	}
	t.clock = c
	t.createdAt = t.createdAt.In(c.Now().Location())
	t.ownClock = true
}

func (t *Task) markQueued() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitionLocked(TaskStatusQueued)
}

func (t *Task) markProcessing(at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transitionLocked(TaskStatusProcessing); err != nil {
		return err
	}
	t.startedAt = &at
	return nil
}

func (t *Task) complete(result any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transitionLocked(TaskStatusCompleted); err != nil {
		return err
	}
	t.result = result
	return nil
}

func (t *Task) fail(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if terr := t.transitionLocked(TaskStatusFailed); terr != nil {
		return terr
	}
	t.err = err
	t.result = map[string]string{ResultErrorKey: err.Error()}
	return nil
}

// markCompletedAt stamps the completion time once; later calls are no-ops.
func (t *Task) markCompletedAt(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completedAt == nil {
		t.completedAt = &at
	}
}

// taskJSON is the wire form of a Task, including derived durations.
type taskJSON struct {
	TaskID                      string         `json:"task_id"`
	Status                      TaskStatus     `json:"status"`
	Args                        []any          `json:"args"`
	Kwargs                      map[string]any `json:"kwargs"`
	Result                      any            `json:"result"`
	CreatedAt                   time.Time      `json:"created_at"`
	StartedAt                   *time.Time     `json:"started_at"`
	CompletedAt                 *time.Time     `json:"completed_at"`
	ProcessingDurationInSeconds *int64         `json:"processing_duration_in_seconds"`
	TotalDurationInSeconds      int64          `json:"total_duration_in_seconds"`
}

// MarshalJSON encodes a consistent snapshot of the task.
func (t *Task) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	out := taskJSON{
		TaskID:      t.id,
		Status:      t.status,
		Args:        t.args,
		Kwargs:      t.kwargs,
		Result:      t.result,
		CreatedAt:   t.createdAt,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
	}
	end := t.endTimeLocked()
	if t.startedAt != nil {
		d := wholeSeconds(*t.startedAt, end)
		out.ProcessingDurationInSeconds = &d
	}
	out.TotalDurationInSeconds = wholeSeconds(t.createdAt, end)
	t.mu.RUnlock()

	return json.Marshal(out)
}
