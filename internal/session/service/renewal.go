package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"scheduling-platform/identity/internal/session/domain"
)

// DefaultRenewalTick is the polling interval of the renewal loop.
const DefaultRenewalTick = 60 * time.Second

// refreshTimeout bounds one refresh, whether started by the loop or a shared RefreshSession call.
const refreshTimeout = 30 * time.Second

// Refresher is what the renewal loop drives; *Manager implements it.
type Refresher interface {
	TokenInfo() domain.TokenInfo
	RefreshSession(ctx context.Context) (*Refreshed, error)
}

// Renewer polls the token state on a fixed tick and refreshes the session ahead of expiry.
type Renewer struct {
	target  Refresher
	tick    time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewRenewer returns a Renewer for target. tick <= 0 uses DefaultRenewalTick.
func NewRenewer(target Refresher, tick time.Duration, logger *zap.Logger) *Renewer {
	if tick <= 0 {
		tick = DefaultRenewalTick
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renewer{target: target, tick: tick, timeout: refreshTimeout, logger: logger}
}

// Start launches one polling loop and returns its stop function. Every Start owns its own ticker;
// stop is idempotent and does not abort a refresh already in flight. onError may be nil and is
// called from the loop goroutine.
func (r *Renewer) Start(onError func(error)) (stop func()) {
	ticker := time.NewTicker(r.tick)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.RunOnce(onError)
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// RunOnce performs a single poll: refresh when the token needs it and a session exists.
func (r *Renewer) RunOnce(onError func(error)) {
	info := r.target.TokenInfo()
	if !info.NeedsRefresh || info.Status == domain.TokenInvalid {
		return
	}
	// Detached from the loop so stopping it lets this refresh finish and apply.
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.target.RefreshSession(ctx); err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			return
		}
		r.logger.Warn("auto-renewal failed", zap.Error(err), zap.Bool("terminal", IsTerminal(err)))
		if onError != nil {
			onError(err)
		}
	}
}
