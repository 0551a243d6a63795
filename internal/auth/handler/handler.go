package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/middleware"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/httputil"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
	Me(ctx context.Context) (*models.User, error)
	CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	DisableUser(ctx context.Context, userID id.UserID) (*models.User, error)
}

type Handler struct {
	service      Service
	logger       *slog.Logger
	secureCookie bool
}

type Option func(*Handler)

// WithSecureCookie marks the session cookie Secure; enable behind TLS.
func WithSecureCookie(secure bool) Option {
	return func(h *Handler) {
		h.secureCookie = secure
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the unauthenticated session routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
}

// RegisterAuthenticated mounts routes that need RequireUser.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

// RegisterAdmin mounts user management. The service checks the admin role as well.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/users", h.handleListUsers)
	r.Post("/admin/users", h.handleCreateUser)
	r.Post("/admin/users/{id}/disable", h.handleDisableUser)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "failed to log in")
		return
	}
	http.SetCookie(w, h.sessionCookie(res.Token, res.ExpiresAt))
	httputil.WriteJSON(w, http.StatusOK, res)
}

// handleLogout clears the cookie. Tokens are stateless, so a bearer token
// stays valid until it expires or its user is disabled.
func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.sessionCookie("", time.Unix(0, 0)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Me(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to load current user")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

type usersResponse struct {
	Users []*models.User `json:"users"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list users")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usersResponse{Users: users})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.service.CreateUser(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "failed to create user")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleDisableUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.service.DisableUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "failed to disable user")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}
