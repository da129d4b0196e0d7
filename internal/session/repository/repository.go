package repository

import (
	"context"

	"scheduling-platform/identity/internal/session/domain"
)

// Store persists the current session record on the device. It holds no validation logic;
// concurrent writers see last-write-wins and the lifecycle manager serializes them.
type Store interface {
	Save(ctx context.Context, r domain.Record) error
	// Load returns nil, nil when no session is stored.
	Load(ctx context.Context) (*domain.Record, error)
	// Clear removes the session keys only. device.id is untouched.
	Clear(ctx context.Context) error
}
