// Package rpc exposes the session authority over gRPC (service identity.authority.v1.SessionAuthority)
// with JSON-encoded messages. Every response carries Success and, on failure, a Reason.
package rpc

import "scheduling-platform/identity/internal/platform/rpcjson"

type CreateRequest struct {
	AccountID        string `json:"account_id"`
	DeviceID         string `json:"device_id"`
	ActiveRole       string `json:"active_role"`
	ClientDescriptor string `json:"client_descriptor"`
}

type CreateResponse struct {
	Success      bool                   `json:"success"`
	Reason       string                 `json:"reason,omitempty"`
	SessionID    string                 `json:"session_id,omitempty"`
	RefreshToken string                 `json:"refresh_token,omitempty"`
	AccessToken  string                 `json:"access_token,omitempty"`
	ExpiresAt    *rpcjson.Timestamp `json:"expires_at,omitempty"`
}

type RefreshRequest struct {
	SessionID    string `json:"session_id"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	Success     bool                   `json:"success"`
	Reason      string                 `json:"reason,omitempty"`
	AccessToken string                 `json:"access_token,omitempty"`
	ExpiresAt   *rpcjson.Timestamp `json:"expires_at,omitempty"`
}

type RevokeOneRequest struct {
	SessionID string `json:"session_id"`
}

type RevokeOneResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type RevokeAllRequest struct {
	AccountID       string `json:"account_id"`
	ExceptSessionID string `json:"except_session_id,omitempty"`
}

type RevokeAllResponse struct {
	Success      bool   `json:"success"`
	Reason       string `json:"reason,omitempty"`
	RevokedCount int32  `json:"revoked_count"`
}

type ListRequest struct {
	CurrentSessionID string `json:"current_session_id,omitempty"`
}

type SessionSummary struct {
	SessionID        string                 `json:"session_id"`
	DeviceID         string                 `json:"device_id"`
	ClientDescriptor string                 `json:"client_descriptor"`
	ActiveRole       string                 `json:"active_role"`
	CreatedAt        *rpcjson.Timestamp `json:"created_at"`
	LastSeenAt       *rpcjson.Timestamp `json:"last_seen_at,omitempty"`
	ExpiresAt        *rpcjson.Timestamp `json:"expires_at"`
	Current          bool                   `json:"current"`
}

type ListResponse struct {
	Success  bool              `json:"success"`
	Reason   string            `json:"reason,omitempty"`
	Sessions []*SessionSummary `json:"sessions,omitempty"`
}

type ValidateRequest struct {
	SessionID string `json:"session_id"`
}

type ValidateResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Valid   bool   `json:"valid"`
}
