package task

import (
	"errors"
	"fmt"
)

// Common errors returned by the queue and the Manager
var (
	ErrQueueClosed       = errors.New("task queue is closed")
	ErrManagerClosed     = errors.New("task manager is shut down")
	ErrAlreadyRunning    = errors.New("processing loop is already running")
	ErrInvalidTask       = errors.New("invalid task")
	ErrDuplicateTask     = errors.New("task id already registered")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTaskNotFound      = errors.New("task not found")
)

// NotFoundError is returned by Manager.Lookup when a task ID is not registered.
type NotFoundError struct {
	TaskID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Is lets errors.Is match NotFoundError against ErrTaskNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrTaskNotFound
}
