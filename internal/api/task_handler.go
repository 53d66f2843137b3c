package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/taskqueue/internal/api/shared"
	"github.com/phrazzld/taskqueue/internal/clock"
	"github.com/phrazzld/taskqueue/internal/platform/logger"
	"github.com/phrazzld/taskqueue/internal/task"
	"github.com/phrazzld/taskqueue/internal/work"
)

// TaskHandler exposes the task manager over HTTP.
type TaskHandler struct {
	manager *task.Manager
	catalog *work.Catalog
	clock   clock.Clock
	logger  *slog.Logger
}

// NewTaskHandler creates a TaskHandler. Tasks it creates take their
// timestamps from clk.
func NewTaskHandler(
	manager *task.Manager,
	catalog *work.Catalog,
	clk clock.Clock,
	logger *slog.Logger,
) *TaskHandler {
	return &TaskHandler{
		manager: manager,
		catalog: catalog,
		clock:   clk,
		logger:  logger.With("component", "task_handler"),
	}
}

// SubmitTask handles POST /api/tasks.
// It builds the unit of work named by kind, submits it and responds with
// 202 Accepted and the queued record.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SubmitTaskRequest
	if !parseAndValidateRequest(w, r, &req) {
		return
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	unit, err := h.catalog.Build(req.Kind, req.Args, req.Kwargs)
	if err != nil {
		log.Debug("rejected task with unknown kind", "kind", req.Kind)
		HandleAPIError(w, r, err, "")
		return
	}

	t := task.NewTask(taskID, unit, task.WithTaskClock(h.clock))
	if err := h.manager.Submit(r.Context(), t); err != nil {
		log.Warn("task submission failed", "task_id", taskID, "error", err)
		HandleAPIError(w, r, err, "")
		return
	}

	position := h.manager.Position(taskID)
	log.Info("task submitted", "task_id", taskID, "kind", req.Kind, "position", position)

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskResponse{Task: t, Position: position})
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathTaskID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	t, err := h.manager.Lookup(taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{
		Task:     t,
		Position: h.manager.Position(taskID),
	})
}

// GetTaskPosition handles GET /api/tasks/{id}/position.
// Unknown or finished tasks report -1.
func (h *TaskHandler) GetTaskPosition(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathTaskID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PositionResponse{
		TaskID:   taskID,
		Position: h.manager.Position(taskID),
	})
}

// Health handles GET /healthz.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "ok",
		Pending: h.manager.Len(),
		Running: h.manager.Running(),
	})
}
