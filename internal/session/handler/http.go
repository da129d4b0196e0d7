// Package handler serves the session agent's session endpoints to the local UI layer.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"scheduling-platform/identity/internal/platform/httpx"
	"scheduling-platform/identity/internal/session/domain"
	"scheduling-platform/identity/internal/session/service"
)

// Sessions is the part of *service.Manager the handler uses.
type Sessions interface {
	TokenInfo() domain.TokenInfo
	HasActiveSession() bool
	CurrentSessionID() string
	RefreshSession(ctx context.Context) (*service.Refreshed, error)
	ValidateCurrentSession(ctx context.Context) (bool, error)
	ListActiveSessions(ctx context.Context) ([]domain.SessionListItem, error)
}

type Handler struct {
	sessions Sessions
	logger   *zap.Logger
}

func NewHandler(sessions Sessions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// Routes mounts the session endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/session/token", h.handleTokenInfo)
	r.Post("/session/refresh", h.handleRefresh)
	r.Post("/session/validate", h.handleValidate)
	r.Get("/sessions", h.handleList)
}

type tokenResponse struct {
	Active    bool             `json:"active"`
	SessionID string           `json:"session_id,omitempty"`
	Token     domain.TokenInfo `json:"token"`
}

func (h *Handler) tokenState() tokenResponse {
	return tokenResponse{
		Active:    h.sessions.HasActiveSession(),
		SessionID: h.sessions.CurrentSessionID(),
		Token:     h.sessions.TokenInfo(),
	}
}

func (h *Handler) handleTokenInfo(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.tokenState())
}

// handleRefresh never returns the access token; it stays with the agent's runtime.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.RefreshSession(r.Context()); err != nil {
		h.logger.Info("refresh request failed", zap.Error(err))
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.tokenState())
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	valid, err := h.sessions.ValidateCurrentSession(r.Context())
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.ListActiveSessions(r.Context())
	if err != nil {
		httpx.WriteServiceError(w, err)
		return
	}
	if items == nil {
		items = []domain.SessionListItem{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": items})
}
