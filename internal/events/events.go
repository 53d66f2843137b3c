package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskEvent describes a single status transition of a task.
// Status values are the string form of the queue's task status so that this
// package does not depend on the task package.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task that changed state
	TaskID string `json:"task_id"`

	// From is the status before the transition
	From string `json:"from"`

	// To is the status after the transition
	To string `json:"to"`

	// OccurredAt is the timestamp of the transition
	OccurredAt time.Time `json:"occurred_at"`

	// Elapsed is the time spent processing, set only on terminal transitions
	Elapsed time.Duration `json:"elapsed,omitempty"`

	// Error holds the failure message for transitions into a failed state
	Error string `json:"error,omitempty"`
}

// NewTaskEvent creates a TaskEvent for the given transition.
func NewTaskEvent(taskID, from, to string, at time.Time) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		TaskID:     taskID,
		From:       from,
		To:         to,
		OccurredAt: at,
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
