// Package handler serves sign-in, role and account-wide session endpoints to the local UI layer.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"scheduling-platform/identity/internal/identity/domain"
	"scheduling-platform/identity/internal/identity/service"
	"scheduling-platform/identity/internal/platform/httpx"
)

// Auth is the part of *service.AuthService the handler uses.
type Auth interface {
	LoginWithPassword(ctx context.Context, email, password string) (*service.LoginResult, error)
	LoginWithProvider(ctx context.Context, provider domain.ProviderKind, credential string) (*service.LoginResult, error)
	Logout(ctx context.Context) error
	Profile() *domain.Profile
	SwitchActiveRole(ctx context.Context, role domain.Role) (*service.LoginResult, error)
	AddRole(ctx context.Context, role domain.Role, businessID string) (*domain.Profile, error)
	RevokeAllSessions(ctx context.Context, exceptCurrent bool) (int, error)
}

type Handler struct {
	auth   Auth
	logger *zap.Logger
}

func NewHandler(auth Auth, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{auth: auth, logger: logger}
}

// Routes mounts the identity endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/login/{provider}", h.handleProviderLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/profile", h.handleProfile)
	r.Post("/auth/role", h.handleSwitchRole)
	r.Post("/auth/roles", h.handleAddRole)
	r.Post("/sessions/revoke-all", h.handleRevokeAll)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type providerLoginRequest struct {
	Credential string `json:"credential"`
}

type switchRoleRequest struct {
	Role string `json:"role"`
}

type addRoleRequest struct {
	Role       string `json:"role"`
	BusinessID string `json:"business_id"`
}

type revokeAllRequest struct {
	ExceptCurrent *bool `json:"except_current"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email_and_password_required")
		return
	}
	res, err := h.auth.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("password login failed", zap.Error(err))
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := domain.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider")
		return
	}
	var req providerLoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if strings.TrimSpace(req.Credential) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "credential_required")
		return
	}
	res, err := h.auth.LoginWithProvider(r.Context(), provider, req.Credential)
	if err != nil {
		h.logger.Info("provider login failed", zap.String("provider", string(provider)), zap.Error(err))
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.logger.Warn("logout: sign out failed", zap.Error(err))
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out_locally", "warning": err.Error()})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *Handler) handleProfile(w http.ResponseWriter, _ *http.Request) {
	p := h.auth.Profile()
	if p == nil {
		httpx.WriteServiceError(w, service.ErrNotAuthenticated)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleSwitchRole(w http.ResponseWriter, r *http.Request) {
	var req switchRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	res, err := h.auth.SwitchActiveRole(r.Context(), role)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleAddRole(w http.ResponseWriter, r *http.Request) {
	var req addRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	p, err := h.auth.AddRole(r.Context(), role, strings.TrimSpace(req.BusinessID))
	if err != nil {
		h.logger.Info("add role failed", zap.String("role", string(role)), zap.Error(err))
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// handleRevokeAll spares the current session unless except_current is false.
func (h *Handler) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	var req revokeAllRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	exceptCurrent := true
	if req.ExceptCurrent != nil {
		exceptCurrent = *req.ExceptCurrent
	}
	n, err := h.auth.RevokeAllSessions(r.Context(), exceptCurrent)
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"revoked": n})
}
