// Package device produces the stable per-device identifier that lets the session authority
// tell concurrent sessions of one account apart.
package device

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"scheduling-platform/identity/internal/device/domain"
	"scheduling-platform/identity/internal/localstore"
)

// Provider returns the device id, generating and persisting it on first use. Safe for concurrent use.
type Provider struct {
	kv     localstore.KV
	logger *zap.Logger
	nowF   func() time.Time

	mu     sync.Mutex
	cached *domain.DeviceIdentity
}

// NewProvider returns a Provider backed by kv. logger may be nil.
func NewProvider(kv localstore.KV, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{kv: kv, logger: logger, nowF: time.Now}
}

// GetOrCreateDeviceID returns the persisted id, creating it when absent. It never fails:
// when the store is unavailable it logs a warning and returns an ephemeral id that is
// reused for the rest of the process lifetime.
func (p *Provider) GetOrCreateDeviceID(ctx context.Context) domain.DeviceIdentity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && !p.cached.Ephemeral {
		return *p.cached
	}

	id, ok, err := p.kv.Get(ctx, domain.KeyDeviceID)
	if err == nil && ok && id != "" {
		p.cached = &domain.DeviceIdentity{ID: id}
		return *p.cached
	}
	if err != nil {
		p.logger.Warn("device id: read failed", zap.Error(err))
		return p.ephemeral()
	}

	// Keep an already generated ephemeral id if a retry of the write succeeds.
	newID := ""
	if p.cached != nil {
		newID = p.cached.ID
	} else {
		newID = p.generate()
	}
	if err := p.kv.Set(ctx, map[string]string{domain.KeyDeviceID: newID}); err != nil {
		p.logger.Warn("device id: persist failed, using ephemeral id", zap.Error(err))
		p.cached = &domain.DeviceIdentity{ID: newID, Ephemeral: true}
		return *p.cached
	}
	p.cached = &domain.DeviceIdentity{ID: newID}
	p.logger.Info("device id created", zap.String("device_id", newID))
	return *p.cached
}

func (p *Provider) ephemeral() domain.DeviceIdentity {
	if p.cached == nil {
		p.cached = &domain.DeviceIdentity{ID: p.generate(), Ephemeral: true}
	}
	return *p.cached
}

func (p *Provider) generate() string {
	id, err := ulid.New(ulid.Timestamp(p.nowF()), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
