package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/session"
	"github.com/clikanban/kanban/types"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:     http.StatusBadRequest,
	apperr.KindNotFound:       http.StatusNotFound,
	apperr.KindAlreadyExists:  http.StatusConflict,
	apperr.KindConflict:       http.StatusConflict,
	apperr.KindPermission:     http.StatusForbidden,
	apperr.KindAuthentication: http.StatusUnauthorized,
	apperr.KindInternal:       http.StatusInternalServerError,
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func claimsFromContext(ctx context.Context) (session.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(session.Claims)
	return claims, ok
}

func sessionFromContext(ctx context.Context) (types.Session, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return types.Session{}, errors.New("missing session")
	}
	return claims.Session(), nil
}

// pathParam returns the decoded value of a route parameter. chi matches on
// RawPath when it is set, so only those values still need unescaping.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value
	}
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error to its status. Internal errors are
// logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeJSON(w, status, ErrorResponse{Error: "internal error", Kind: string(apperr.KindInternal)})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: errorMessage(err), Kind: string(kind)})
}

func errorMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
