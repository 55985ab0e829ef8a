package handlers

import (
	"net/http"
	"strings"

	"github.com/clikanban/kanban/internal/services"
	"github.com/clikanban/kanban/types"
	"github.com/go-chi/chi/v5"
)

// BoardHandler provides HTTP handlers for boards and the tasks on them.
type BoardHandler struct {
	boardService *services.BoardService
	taskService  *services.TaskService
}

// NewBoardHandler constructs a BoardHandler.
func NewBoardHandler(boardService *services.BoardService, taskService *services.TaskService) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		taskService:  taskService,
	}
}

// BoardRouter registers board routes on the given router. Every route needs
// a session because board visibility depends on it.
func BoardRouter(
	r chi.Router,
	boardService *services.BoardService,
	taskService *services.TaskService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewBoardHandler(boardService, taskService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListBoards)
	r.Post("/", handler.CreateBoard)
	r.Route("/{boardName}", func(r chi.Router) {
		r.Get("/", handler.ViewBoard)
		r.Delete("/", handler.DeleteBoard)
		r.Post("/columns", handler.AddColumn)
		r.Post("/export", handler.ExportBoard)
		r.Post("/tasks", handler.CreateTask)
		r.Get("/tasks", handler.ListTasks)
	})
}

func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	boards, err := h.boardService.ListBoards(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateBoardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	board, err := h.boardService.CreateBoard(r.Context(), sess, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, board)
}

func (h *BoardHandler) ViewBoard(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.boardService.ViewBoard(r.Context(), sess, pathParam(r, "boardName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *BoardHandler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	removed, err := h.boardService.DeleteBoard(r.Context(), sess, pathParam(r, "boardName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteBoardResponse{TasksRemoved: removed})
}

func (h *BoardHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
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

	board, err := h.boardService.AddColumn(r.Context(), sess, pathParam(r, "boardName"), req.Column)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *BoardHandler) ExportBoard(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	key, err := h.boardService.ExportBoard(r.Context(), sess, pathParam(r, "boardName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ExportResponse{Key: key})
}

func (h *BoardHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.NewTask
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	board, err := h.boardService.ResolveBoard(r.Context(), sess, pathParam(r, "boardName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	req.BoardID = board.ID

	task, err := h.taskService.CreateTask(r.Context(), sess, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// ListTasks lists the board's tasks. q searches titles and descriptions;
// column narrows the list to one column.
func (h *BoardHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	board, err := h.boardService.ResolveBoard(r.Context(), sess, pathParam(r, "boardName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var (
		tasks  []types.Task
		query  = r.URL.Query()
		column = strings.TrimSpace(query.Get("column"))
	)
	switch {
	case query.Has("q"):
		tasks, err = h.taskService.SearchTasks(r.Context(), board.ID, query.Get("q"))
	case column != "":
		tasks, err = h.taskService.ListTasksInColumn(r.Context(), board.ID, column)
	default:
		tasks, err = h.taskService.ListTasks(r.Context(), board.ID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

type CreateBoardRequest struct {
	Name string `json:"name"`
}

type ColumnRequest struct {
	Column string `json:"column"`
}

type DeleteBoardResponse struct {
	TasksRemoved int64 `json:"tasks_removed"`
}

type ExportResponse struct {
	Key string `json:"key"`
}
