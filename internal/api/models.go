package api

import (
	"encoding/json"

	"github.com/phrazzld/taskqueue/internal/task"
)

// SubmitTaskRequest defines the payload for the task submission endpoint.
type SubmitTaskRequest struct {
	// TaskID is optional; a UUID is generated when it is empty.
	TaskID string         `json:"task_id"  validate:"omitempty,max=128,printascii,excludesall=/"`
	Kind   string         `json:"kind"     validate:"required"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// TaskResponse is the task record plus its current place in line.
type TaskResponse struct {
	Task     *task.Task
	Position int
}

// MarshalJSON flattens the task record and adds the position field.
func (r TaskResponse) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Task)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["position"], _ = json.Marshal(r.Position)
	return json.Marshal(fields)
}

// PositionResponse defines the response of the position endpoint.
type PositionResponse struct {
	TaskID   string `json:"task_id"`
	Position int    `json:"position"`
}

// HealthResponse defines the response of the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
	Running bool   `json:"running"`
}
