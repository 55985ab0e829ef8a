package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/services"
	"github.com/clikanban/kanban/internal/session"
	"github.com/clikanban/kanban/types"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// AuthHandler provides signup and JWT session endpoints.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	issuer      *session.Issuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService, issuer *session.Issuer) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		issuer:      issuer,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, userService *services.UserService, issuer *session.Issuer) {
	handler := NewAuthHandler(authService, userService, issuer)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.With(RequireAuth(issuer)).Post("/signout", handler.Signout)
	r.With(RequireAuth(issuer)).Get("/me", handler.Me)
}

// RequireAuth verifies the bearer token and injects its claims into the
// request context.
func RequireAuth(issuer *session.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := issuer.Verify(r.Context(), tokenString)
			if err != nil {
				if !errors.Is(err, session.ErrRevoked) {
					log.WithError(err).Debug("rejected bearer token")
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Signup creates an account from a licence key.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	userID, role, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{UserID: userID, Role: role})
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindAuthentication:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	token, err := h.issuer.Issue(types.SessionFor(user))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Signout revokes the presented token.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.issuer.Revoke(r.Context(), claims); err != nil {
		log.WithError(err).Error("revoke token")
		writeError(w, http.StatusInternalServerError, "failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), sess.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupResponse struct {
	UserID string     `json:"user_id"`
	Role   types.Role `json:"role"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
