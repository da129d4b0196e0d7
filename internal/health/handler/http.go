// Package handler serves the agent's health endpoint.
package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"scheduling-platform/identity/internal/platform/httpx"
)

const checkTimeout = 2 * time.Second

// Pinger checks the device store is reachable (e.g. localstore.KV).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker checks the role policy engine is usable (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler reports serving when every configured check passes. Nil checks are skipped.
type Handler struct {
	pinger Pinger
	policy PolicyChecker
	logger *zap.Logger
}

func NewHandler(pinger Pinger, policy PolicyChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pinger: pinger, policy: policy, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP never fails the request itself; an unhealthy dependency is reported as 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := healthResponse{Status: "serving", Checks: map[string]string{}}
	code := http.StatusOK
	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("health: store ping failed", zap.Error(err))
			resp.Checks["store"] = "unavailable"
			resp.Status, code = "not_serving", http.StatusServiceUnavailable
		} else {
			resp.Checks["store"] = "ok"
		}
	}
	if h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			h.logger.Warn("health: policy check failed", zap.Error(err))
			resp.Checks["policy"] = "unavailable"
			resp.Status, code = "not_serving", http.StatusServiceUnavailable
		} else {
			resp.Checks["policy"] = "ok"
		}
	}
	httpx.WriteJSON(w, code, resp)
}
