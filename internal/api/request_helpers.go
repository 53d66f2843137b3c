package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskqueue/internal/api/shared"
)

// getPathTaskID extracts the task ID from the URL path parameters.
func getPathTaskID(r *http.Request, paramName string) (string, error) {
	id := chi.URLParam(r, paramName)
	if id == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidRequest, paramName)
	}
	return id, nil
}

// parseAndValidateRequest decodes the JSON body into req and validates it.
// On failure it writes the error response and returns false.
func parseAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", ErrInvalidRequest, err), "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
