package task

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values, in order of progression.
const (
	TaskStatusDangling   TaskStatus = "dangling"
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal returns true if no further state transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusDangling, TaskStatusQueued, TaskStatusProcessing,
		TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a task in status s may move to next.
// Statuses only move forward one step at a time; terminal statuses never move.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusDangling:
		return next == TaskStatusQueued
	case TaskStatusQueued:
		return next == TaskStatusProcessing
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	}
	return false
}

// String implements fmt.Stringer.
func (s TaskStatus) String() string {
	return string(s)
}
