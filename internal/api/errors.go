package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskqueue/internal/api/shared"
	"github.com/phrazzld/taskqueue/internal/task"
	"github.com/phrazzld/taskqueue/internal/work"
)

// ErrInvalidRequest marks a request body or path parameter that could not be
// parsed or failed validation.
var ErrInvalidRequest = errors.New("invalid request")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, task.ErrDuplicateTask),
		errors.Is(err, task.ErrInvalidTransition):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, work.ErrUnknownKind),
		errors.As(err, &verrs):
		return http.StatusBadRequest

	// The manager is shutting down
	case errors.Is(err, task.ErrManagerClosed),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, task.ErrDuplicateTask):
		return "Task ID already exists"

	case errors.Is(err, task.ErrInvalidTransition):
		return "Task was already submitted"

	case errors.Is(err, work.ErrUnknownKind):
		return "Unknown task kind"

	case errors.As(err, &verrs):
		return SanitizeValidationError(err)

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, task.ErrInvalidTask):
		return "Invalid request format"

	case errors.Is(err, task.ErrManagerClosed),
		errors.Is(err, task.ErrQueueClosed):
		return "Task queue is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "max":
		return "too long"
	case "printascii", "excludesall":
		return "contains invalid characters"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes an error response whose status and message are
// derived from err. A non-empty message overrides the derived one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
