package domain

import "time"

// TokenStatus is the lifecycle state of the stored access credential.
type TokenStatus string

const (
	TokenValid   TokenStatus = "valid"
	TokenExpired TokenStatus = "expired"
	// TokenInvalid means no session is stored.
	TokenInvalid TokenStatus = "invalid"
)

// TokenInfo is derived from the stored expiry and the clock; it is never persisted.
type TokenInfo struct {
	Status       TokenStatus    `json:"status"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	ExpiresIn    *time.Duration `json:"expires_in,omitempty"`
	NeedsRefresh bool           `json:"needs_refresh"`
}

// Evaluate computes TokenInfo. expiresAt is nil when no session is stored.
func Evaluate(expiresAt *time.Time, now time.Time, window time.Duration) TokenInfo {
	if expiresAt == nil {
		return TokenInfo{Status: TokenInvalid, NeedsRefresh: true}
	}
	at := *expiresAt
	if !at.After(now) {
		var zero time.Duration
		return TokenInfo{Status: TokenExpired, ExpiresAt: &at, ExpiresIn: &zero, NeedsRefresh: true}
	}
	remaining := at.Sub(now)
	return TokenInfo{
		Status:       TokenValid,
		ExpiresAt:    &at,
		ExpiresIn:    &remaining,
		NeedsRefresh: remaining <= window,
	}
}
