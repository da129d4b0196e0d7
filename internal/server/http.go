// Package server assembles the gRPC server of the authority process and the HTTP router of the
// session agent.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	identityhandler "scheduling-platform/identity/internal/identity/handler"
	"scheduling-platform/identity/internal/logging"
	sessionhandler "scheduling-platform/identity/internal/session/handler"
)

// HTTPDeps holds the agent's HTTP handlers. Nil handlers are not mounted.
type HTTPDeps struct {
	Health   http.Handler
	Sessions *sessionhandler.Handler
	Identity *identityhandler.Handler
	Logger   *zap.Logger
}

// NewRouter returns the agent's local HTTP API.
func NewRouter(deps HTTPDeps) http.Handler {
	logger := logging.OrNop(deps.Logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	if deps.Health != nil {
		r.Method(http.MethodGet, "/health", deps.Health)
	} else {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"serving"}` + "\n"))
		})
	}
	if deps.Sessions != nil {
		deps.Sessions.Routes(r)
	}
	if deps.Identity != nil {
		deps.Identity.Routes(r)
	}
	return r
}

// requestLogger logs one line per request at debug level. Bodies are never logged.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
