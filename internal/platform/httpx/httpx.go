// Package httpx holds the JSON helpers and error mapping shared by the agent's HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"scheduling-platform/identity/internal/identity/domain"
	identityservice "scheduling-platform/identity/internal/identity/service"
	sessionservice "scheduling-platform/identity/internal/session/service"
)

// MaxBodyBytes caps a request body read by DecodeJSON.
const MaxBodyBytes = 64 << 10

// DecodeJSON decodes the request body into out, rejecting unknown fields and bodies over
// MaxBodyBytes. An empty body leaves out unchanged.
func DecodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code string) {
	WriteJSON(w, status, map[string]string{"error": code})
}

// StatusFor maps a service error to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, sessionservice.ErrNoActiveSession):
		return http.StatusUnauthorized, "no_active_session"
	case errors.Is(err, identityservice.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, domain.ErrRoleNotHeld):
		return http.StatusConflict, "role_not_held"
	case errors.Is(err, domain.ErrUnknownRole):
		return http.StatusBadRequest, "unknown_role"
	case errors.Is(err, identityservice.ErrRoleGrantDenied):
		return http.StatusForbidden, "role_grant_denied"
	case errors.Is(err, sessionservice.ErrTerminal):
		return http.StatusUnauthorized, "session_terminated"
	case errors.Is(err, sessionservice.ErrTransient):
		return http.StatusServiceUnavailable, "authority_unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// WriteServiceError writes the mapped status for err.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	WriteError(w, status, code)
}
