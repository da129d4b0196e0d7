// Package telemetry carries session lifecycle events to OpenTelemetry logs and Kafka.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the session agent.
const (
	EventSessionCreated       = "session.created"
	EventSessionRefreshed     = "session.refreshed"
	EventSessionRefreshFailed = "session.refresh_failed"
	EventSessionRevoked       = "session.revoked"
	EventSessionsRevokedAll   = "session.revoked_all"
	EventSessionCleared       = "session.cleared"
	EventLogin                = "auth.login"
	EventLogout               = "auth.logout"
	EventRoleSwitched         = "auth.role_switched"
	EventRoleAdded            = "auth.role_added"
	EventRPC                  = "grpc_request"
)

// Event is one session lifecycle or RPC event. It never carries refresh or access tokens.
type Event struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	DeviceID  string          `json:"deviceId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent returns an Event with a fresh id and the current UTC time. meta may be nil;
// otherwise it is JSON-encoded into Metadata.
func NewEvent(eventType, source string, meta any) *Event {
	e := &Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = b
		}
	}
	return e
}
