// Package service is the session lifecycle manager: it establishes, persists, renews, validates
// and revokes the device's session against the remote authority, and keeps the runtime's access
// credential in step with it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"scheduling-platform/identity/internal/authority"
	devicedomain "scheduling-platform/identity/internal/device/domain"
	"scheduling-platform/identity/internal/session/domain"
	"scheduling-platform/identity/internal/session/repository"
	"scheduling-platform/identity/internal/telemetry"
)

const eventSource = "session_manager"

// DeviceIDProvider returns this device's stable id.
type DeviceIDProvider interface {
	GetOrCreateDeviceID(ctx context.Context) devicedomain.DeviceIdentity
}

// Authenticator is the local runtime that carries the access credential (e.g. *Credentials).
type Authenticator interface {
	SetAccessToken(token string)
	Clear()
}

// Options configures a Manager. Store, Devices and Authority are required.
type Options struct {
	Store     repository.Store
	Devices   DeviceIDProvider
	Authority authority.Client
	// Runtime is re-authenticated on create and refresh and cleared with the store. Optional.
	Runtime Authenticator
	Logger  *zap.Logger
	// Emitter receives session lifecycle events. Optional.
	Emitter telemetry.EventEmitter
	// Meter records refresh and revoke counters. Defaults to the global meter provider.
	Meter metric.Meter
	// Window is the renewal lead time. Defaults to domain.DefaultRenewalWindow.
	Window time.Duration
	// ClientDescriptor is sent with Create for device listings.
	ClientDescriptor string
}

// Created is the result of CreateSession.
type Created struct {
	SessionID   string
	AccessToken string `json:"-"`
}

// Refreshed is the result of RefreshSession.
type Refreshed struct {
	AccessToken string `json:"-"`
}

// state mirrors the store. rec is nil when no session is stored.
type state struct {
	rec       *domain.Record
	accountID string
}

// Manager owns the device's session keys; nothing else writes them. Writers are serialized by mu,
// so a revoke's clear is never overwritten by a refresh that started before it. TokenInfo and
// HasActiveSession read an in-memory snapshot and never block.
type Manager struct {
	store      repository.Store
	devices    DeviceIDProvider
	authority  authority.Client
	runtime    Authenticator
	logger     *zap.Logger
	emitter    telemetry.EventEmitter
	window     time.Duration
	descriptor string
	nowF       func() time.Time

	mu    sync.Mutex
	snap  atomic.Pointer[state]
	group singleflight.Group

	refreshTotal metric.Int64Counter
	revokeTotal  metric.Int64Counter
}

// NewManager builds a Manager and loads the stored session once. A store that cannot be read is
// treated as holding no session.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if opts.Store == nil || opts.Devices == nil || opts.Authority == nil {
		return nil, errors.New("session: store, device provider and authority are required")
	}
	m := &Manager{
		store:      opts.Store,
		devices:    opts.Devices,
		authority:  opts.Authority,
		runtime:    opts.Runtime,
		logger:     opts.Logger,
		emitter:    opts.Emitter,
		window:     opts.Window,
		descriptor: opts.ClientDescriptor,
		nowF:       time.Now,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.window <= 0 {
		m.window = domain.DefaultRenewalWindow
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter("scheduling-platform/identity/session")
	}
	var err error
	if m.refreshTotal, err = meter.Int64Counter("session.refresh.total",
		metric.WithDescription("Session refresh attempts by outcome")); err != nil {
		return nil, err
	}
	if m.revokeTotal, err = meter.Int64Counter("session.revoke.total",
		metric.WithDescription("Session revocations by scope and outcome")); err != nil {
		return nil, err
	}

	rec, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("session store unreadable; starting without a session", zap.Error(err))
		rec = nil
	}
	m.snap.Store(&state{rec: rec})
	return m, nil
}

func (m *Manager) current() *state {
	return m.snap.Load()
}

// TokenInfo evaluates the stored expiry against the clock. No I/O.
func (m *Manager) TokenInfo() domain.TokenInfo {
	var at *time.Time
	if rec := m.current().rec; rec != nil {
		exp := rec.ExpiresAt
		at = &exp
	}
	return domain.Evaluate(at, m.nowF(), m.window)
}

// HasActiveSession reports whether a session is stored. No I/O.
func (m *Manager) HasActiveSession() bool {
	return m.current().rec != nil
}

// CurrentSessionID returns the stored session id, or "".
func (m *Manager) CurrentSessionID() string {
	if rec := m.current().rec; rec != nil {
		return rec.SessionID
	}
	return ""
}

// CreateSession establishes a brand-new session for accountID on this device and replaces any
// local record. The previous session, if any, is not revoked remotely.
func (m *Manager) CreateSession(ctx context.Context, accountID, activeRole string) (*Created, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	device := m.devices.GetOrCreateDeviceID(ctx)
	creds, err := m.authority.Create(ctx, authority.CreateRequest{
		AccountID:  accountID,
		ActiveRole: activeRole,
		Client:     domain.ClientContext{DeviceID: device.ID, Descriptor: m.descriptor},
	})
	if err != nil {
		re := newRemoteError("create", "", err)
		m.logger.Warn("session create failed",
			zap.String("account_id", accountID),
			zap.String("kind", re.Kind.String()),
			zap.String("reason", re.Reason),
		)
		return nil, fmt.Errorf("%w: %w", ErrSessionCreation, re)
	}

	rec := domain.Record{SessionID: creds.SessionID, RefreshToken: creds.RefreshToken, ExpiresAt: creds.ExpiresAt}
	if err := m.store.Save(ctx, rec); err != nil {
		// A session nobody can refresh is useless; give it back.
		if rerr := m.authority.RevokeOne(ctx, creds.SessionID); rerr != nil {
			m.logger.Warn("revoke of unsaved session failed", zap.String("session_id", creds.SessionID), zap.Error(rerr))
		}
		m.logger.Error("session save failed", zap.String("session_id", creds.SessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: save: %w", ErrSessionCreation, err)
	}
	m.snap.Store(&state{rec: &rec, accountID: accountID})
	if m.runtime != nil {
		m.runtime.SetAccessToken(creds.AccessToken)
	}

	m.logger.Info("session created",
		zap.String("session_id", creds.SessionID),
		zap.String("account_id", accountID),
		zap.String("device_id", device.ID),
		zap.Bool("ephemeral_device", device.Ephemeral),
		zap.Time("expires_at", creds.ExpiresAt),
	)
	m.emit(telemetry.EventSessionCreated, creds.SessionID, device.ID, map[string]any{
		"active_role":      activeRole,
		"ephemeral_device": device.Ephemeral,
	})
	return &Created{SessionID: creds.SessionID, AccessToken: creds.AccessToken}, nil
}

// RefreshSession mints a new access credential for the stored session. Concurrent callers share one
// authority call, bounded by refreshTimeout; a caller whose ctx ends stops waiting without cancelling
// it. A terminal failure clears local state before the error is returned.
func (m *Manager) RefreshSession(ctx context.Context) (*Refreshed, error) {
	ch := m.group.DoChan("refresh", func() (any, error) {
		// The call is shared, so it runs detached from this caller's cancellation.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(callCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Refreshed), nil
	case <-ctx.Done():
		return nil, newRemoteError("refresh", m.CurrentSessionID(), ctx.Err())
	}
}

func (m *Manager) refresh(ctx context.Context) (*Refreshed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.current()
	if st.rec == nil {
		return nil, ErrNoActiveSession
	}
	rec := *st.rec

	grant, err := m.authority.Refresh(ctx, rec.SessionID, rec.RefreshToken)
	if err != nil {
		re := newRemoteError("refresh", rec.SessionID, err)
		m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", re.Kind.String())))
		m.logger.Warn("session refresh failed",
			zap.String("session_id", rec.SessionID),
			zap.String("kind", re.Kind.String()),
			zap.String("reason", re.Reason),
		)
		m.emit(telemetry.EventSessionRefreshFailed, rec.SessionID, "", map[string]string{
			"kind":   re.Kind.String(),
			"reason": re.Reason,
		})
		if re.Kind == authority.Terminal {
			m.clearLocked(ctx, st, re.Reason)
		}
		return nil, re
	}

	rec.ExpiresAt = grant.ExpiresAt
	if err := m.store.Save(ctx, rec); err != nil {
		// The new credential is valid regardless; the stale expiry on disk only causes an early refresh next run.
		m.logger.Warn("session save after refresh failed", zap.String("session_id", rec.SessionID), zap.Error(err))
	}
	m.snap.Store(&state{rec: &rec, accountID: st.accountID})
	if m.runtime != nil {
		m.runtime.SetAccessToken(grant.AccessToken)
	}
	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	m.logger.Debug("session refreshed", zap.String("session_id", rec.SessionID), zap.Time("expires_at", rec.ExpiresAt))
	m.emit(telemetry.EventSessionRefreshed, rec.SessionID, "", nil)
	return &Refreshed{AccessToken: grant.AccessToken}, nil
}

// RevokeCurrentSession logs this device out. It succeeds when no session is stored, and the local
// record is cleared whatever the authority answers. Authority failures are logged, not returned.
func (m *Manager) RevokeCurrentSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.current()
	if st.rec == nil {
		return nil
	}
	outcome := "ok"
	if err := m.authority.RevokeOne(ctx, st.rec.SessionID); err != nil {
		re := newRemoteError("revoke_one", st.rec.SessionID, err)
		outcome = re.Kind.String()
		m.logger.Warn("remote revoke failed; clearing local session anyway",
			zap.String("session_id", st.rec.SessionID),
			zap.String("kind", re.Kind.String()),
			zap.String("reason", re.Reason),
		)
	}
	m.revokeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", "current"),
		attribute.String("outcome", outcome),
	))
	m.emit(telemetry.EventSessionRevoked, st.rec.SessionID, "", map[string]string{"outcome": outcome})
	return m.clearLocked(ctx, st, "revoked")
}

// RevokeAllSessions revokes the account's sessions on every device. With exceptCurrent the stored
// session is spared and kept locally; otherwise the local record is cleared too.
func (m *Manager) RevokeAllSessions(ctx context.Context, accountID string, exceptCurrent bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.current()
	except := ""
	if exceptCurrent && st.rec != nil {
		except = st.rec.SessionID
	}
	scope := "all"
	if except != "" {
		scope = "others"
	}

	n, err := m.authority.RevokeAll(ctx, accountID, except)
	if err != nil {
		re := newRemoteError("revoke_all", "", err)
		m.revokeTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", re.Kind.String()),
		))
		m.logger.Warn("revoke all failed",
			zap.String("account_id", accountID),
			zap.String("kind", re.Kind.String()),
			zap.String("reason", re.Reason),
		)
		if re.Kind == authority.Terminal && st.rec != nil {
			m.clearLocked(ctx, st, re.Reason)
		}
		return 0, re
	}

	m.revokeTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", "ok"),
	))
	m.logger.Info("sessions revoked", zap.String("account_id", accountID), zap.Int("count", n), zap.Bool("except_current", except != ""))
	m.emit(telemetry.EventSessionsRevokedAll, except, "", map[string]any{"count": n, "except_current": except != ""})
	if except == "" && st.rec != nil {
		if err := m.clearLocked(ctx, st, "revoked_all"); err != nil {
			return n, err
		}
	}
	return n, nil
}

// ListActiveSessions returns the account's sessions as the authority reports them, with Current set
// on the session stored on this device.
func (m *Manager) ListActiveSessions(ctx context.Context) ([]domain.SessionListItem, error) {
	current := m.CurrentSessionID()
	items, err := m.authority.List(ctx, current)
	if err != nil {
		return nil, newRemoteError("list", current, err)
	}
	for i := range items {
		items[i].Current = current != "" && items[i].SessionID == current
	}
	return items, nil
}

// ValidateCurrentSession asks the authority whether the stored session is still live. An invalid or
// terminally rejected session is cleared locally and reported as false. A transient failure reports
// false with an error and leaves local state alone.
func (m *Manager) ValidateCurrentSession(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.current()
	if st.rec == nil {
		return false, nil
	}
	v, err := m.authority.Validate(ctx, st.rec.SessionID)
	if err != nil {
		re := newRemoteError("validate", st.rec.SessionID, err)
		if re.Kind == authority.Transient {
			return false, re
		}
		return false, m.clearLocked(ctx, st, re.Reason)
	}
	if !v.Valid {
		m.logger.Info("stored session no longer valid", zap.String("session_id", st.rec.SessionID), zap.String("reason", v.Reason))
		return false, m.clearLocked(ctx, st, v.Reason)
	}
	return true, nil
}

// clearLocked drops the stored session and the runtime credential. Caller holds m.mu.
// The snapshot is cleared even when the store write fails.
func (m *Manager) clearLocked(ctx context.Context, st *state, cause string) error {
	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.Error("session store clear failed", zap.Error(err))
		err = fmt.Errorf("session: clear: %w", err)
	}
	m.snap.Store(&state{})
	if m.runtime != nil {
		m.runtime.Clear()
	}
	sessionID := ""
	if st != nil && st.rec != nil {
		sessionID = st.rec.SessionID
	}
	m.logger.Info("local session cleared", zap.String("session_id", sessionID), zap.String("cause", cause))
	m.emitFor(st, telemetry.EventSessionCleared, sessionID, "", map[string]string{"cause": cause})
	return err
}

func (m *Manager) emit(eventType, sessionID, deviceID string, meta any) {
	m.emitFor(m.current(), eventType, sessionID, deviceID, meta)
}

func (m *Manager) emitFor(st *state, eventType, sessionID, deviceID string, meta any) {
	if m.emitter == nil {
		return
	}
	event := telemetry.NewEvent(eventType, eventSource, meta)
	event.SessionID = sessionID
	event.DeviceID = deviceID
	if st != nil {
		event.AccountID = st.accountID
	}
	telemetry.EmitAsync(m.emitter, m.logger, event)
}
