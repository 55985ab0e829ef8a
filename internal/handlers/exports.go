package handlers

import (
	"net/http"

	"github.com/clikanban/kanban/internal/services"
	"github.com/go-chi/chi/v5"
)

// ExportHandler serves the archived snapshots of the caller's boards.
type ExportHandler struct {
	boardService *services.BoardService
}

func NewExportHandler(boardService *services.BoardService) *ExportHandler {
	return &ExportHandler{boardService: boardService}
}

// ExportRouter registers snapshot routes. Keys contain slashes, so a
// snapshot is addressed by the key query parameter.
func ExportRouter(r chi.Router, boardService *services.BoardService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewExportHandler(boardService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListExports)
	r.Get("/snapshot", handler.GetExport)
}

func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.boardService.ListExports(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snap, err := h.boardService.LoadExport(r.Context(), sess, r.URL.Query().Get("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
