package domain

import "time"

// Device-local store keys owned by the session lifecycle manager.
const (
	KeySessionID    = "session.id"
	KeyRefreshToken = "session.refreshToken"
	KeyExpiresAt    = "session.expiresAt"
)

// DefaultRenewalWindow is the lead time before expiry at which renewal is attempted.
const DefaultRenewalWindow = 5 * time.Minute

// Record is the device's one session as the store persists it: ExpiresAt is the access credential's
// expiry. The device id is stored separately under device.id.
type Record struct {
	SessionID    string
	RefreshToken string `json:"-"`
	ExpiresAt    time.Time
}

// ClientContext describes the calling client for device listings.
type ClientContext struct {
	DeviceID   string
	Descriptor string
}

// SessionListItem is the authority's summary of one session of the account. Read-only locally.
type SessionListItem struct {
	SessionID        string     `json:"session_id"`
	DeviceID         string     `json:"device_id"`
	ClientDescriptor string     `json:"client_descriptor"`
	ActiveRole       string     `json:"active_role"`
	CreatedAt        time.Time  `json:"created_at"`
	LastSeenAt       *time.Time `json:"last_seen_at,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	Current          bool       `json:"current"`
}
