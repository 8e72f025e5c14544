package tasks

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/taskdeck/taskdeck/internal/http/middleware"
	"github.com/taskdeck/taskdeck/internal/httputil"
	"github.com/taskdeck/taskdeck/pkg/domain"
	"github.com/taskdeck/taskdeck/pkg/tools"
)

// Handler exposes the task operations over REST. Every route delegates to
// the same tool invoker the chat orchestrator uses, so both surfaces share
// one policy (completion is an idempotent set-true on each).
type Handler struct {
	logger  *slog.Logger
	invoker *tools.Invoker
}

// NewHandler creates a new tasks handler.
func NewHandler(logger *slog.Logger, invoker *tools.Invoker) *Handler {
	return &Handler{logger: logger, invoker: invoker}
}

// Create adds a task.
// POST /v1/tasks
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "add_task", bodyArgs(w, r))
}

// List returns the user's tasks, optionally filtered by ?status=.
// GET /v1/tasks
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	args := map[string]string{}
	if status := r.URL.Query().Get("status"); status != "" {
		args["status"] = status
	}
	raw, _ := json.Marshal(args)
	h.invoke(w, r, "list_tasks", raw)
}

// Update partially updates a task.
// PATCH /v1/tasks/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	body := bodyArgs(w, r)
	if body == nil {
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		// A body of `null` is valid JSON but leaves the map nil.
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fields["task_id"] = id
	raw, _ := json.Marshal(fields)
	h.invoke(w, r, "update_task", raw)
}

// Complete marks a task completed. Repeating the call is not an error.
// PATCH /v1/tasks/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	raw, _ := json.Marshal(map[string]int64{"task_id": id})
	h.invoke(w, r, "complete_task", raw)
}

// Delete permanently removes a task.
// DELETE /v1/tasks/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	raw, _ := json.Marshal(map[string]int64{"task_id": id})
	h.invoke(w, r, "delete_task", raw)
}

func (h *Handler) invoke(w http.ResponseWriter, r *http.Request, tool string, args json.RawMessage) {
	if args == nil {
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	result, err := h.invoker.Invoke(r.Context(), userID, tool, args)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrTaskNotFound):
			httputil.Error(w, http.StatusNotFound, "task not found")
		default:
			h.logger.Error("task operation failed", "tool", tool, "error", err)
			httputil.Error(w, http.StatusInternalServerError, "task operation failed")
		}
		return
	}

	status := http.StatusOK
	if tool == "add_task" {
		status = http.StatusCreated
	}
	httputil.JSON(w, status, result)
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func bodyArgs(w http.ResponseWriter, r *http.Request) json.RawMessage {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return nil
	}
	return body
}
