// Package authority defines the contract of the remote session authority: the backend that issues,
// refreshes, revokes, lists and validates device-bound sessions. It is the source of truth for
// session validity; the client performs no retries.
package authority

import (
	"context"
	"time"

	"scheduling-platform/identity/internal/session/domain"
)

// CreateRequest establishes a brand-new session for accountID on this device.
type CreateRequest struct {
	AccountID  string
	ActiveRole string
	Client     domain.ClientContext
}

// Credentials is the result of Create. RefreshToken is only ever sent back to the authority.
type Credentials struct {
	SessionID    string
	RefreshToken string `json:"-"`
	AccessToken  string `json:"-"`
	ExpiresAt    time.Time
}

// AccessGrant is the result of Refresh.
type AccessGrant struct {
	AccessToken string `json:"-"`
	ExpiresAt   time.Time
}

// Validation is the result of Validate. Reason is set when Valid is false.
type Validation struct {
	Valid  bool
	Reason string
}

// Client is the remote session authority.
type Client interface {
	Create(ctx context.Context, req CreateRequest) (*Credentials, error)
	// Refresh fails when the session was revoked or the refresh token does not match.
	Refresh(ctx context.Context, sessionID, refreshToken string) (*AccessGrant, error)
	// RevokeOne is idempotent: revoking an already revoked session succeeds.
	RevokeOne(ctx context.Context, sessionID string) error
	// RevokeAll revokes every session of the account except exceptSessionID (if non-empty).
	RevokeAll(ctx context.Context, accountID, exceptSessionID string) (int, error)
	// List returns the account's sessions with Current set on currentSessionID.
	List(ctx context.Context, currentSessionID string) ([]domain.SessionListItem, error)
	Validate(ctx context.Context, sessionID string) (*Validation, error)
}
