package handlers

import (
	"net/http"

	"github.com/clikanban/kanban/internal/services"
	"github.com/clikanban/kanban/types"
	"github.com/go-chi/chi/v5"
)

// TaskHandler provides HTTP handlers for single tasks.
type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskRouter registers task routes on the given router.
func TaskRouter(r chi.Router, taskService *services.TaskService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService)

	r.Use(authMiddleware)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", handler.GetTask)
		r.Patch("/", handler.EditTask)
		r.Post("/move", handler.MoveTask)
		r.Delete("/", handler.DeleteTask)
	})
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.GetTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var update types.TaskUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeServiceError(w, r, err)
		return
	}

	task, err := h.taskService.EditTask(r.Context(), sess, chi.URLParam(r, "taskID"), update)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ColumnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	task, err := h.taskService.MoveTask(r.Context(), sess, chi.URLParam(r, "taskID"), req.Column)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), sess, chi.URLParam(r, "taskID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
