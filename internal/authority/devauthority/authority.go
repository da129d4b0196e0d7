// Package devauthority is an in-memory session authority for local development and end-to-end tests.
// It issues JWT access tokens, keeps only hashes of refresh tokens and supports revoke, list and validate.
//
// Create and RevokeOne trust the account and session ids they are given; only List and RevokeAll
// check a bearer. It must not serve production traffic.
package devauthority

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scheduling-platform/identity/internal/authority"
	"scheduling-platform/identity/internal/security"
	"scheduling-platform/identity/internal/server/interceptors"
	"scheduling-platform/identity/internal/session/domain"
)

// ErrProductionUse is returned by CheckEnvironment in production.
var ErrProductionUse = errors.New("devauthority: refusing to run in production")

// CheckEnvironment fails when production is set.
func CheckEnvironment(production bool) error {
	if production {
		return ErrProductionUse
	}
	return nil
}

// DefaultSessionTTL is how long a session (and its refresh token) stays usable without a new login.
const DefaultSessionTTL = 30 * 24 * time.Hour

type sessionRecord struct {
	id          string
	accountID   string
	deviceID    string
	descriptor  string
	activeRole  string
	refreshHash string
	createdAt   time.Time
	lastSeenAt  *time.Time
	expiresAt   time.Time
	revokedAt   *time.Time
}

// Authority implements authority.Client in memory.
type Authority struct {
	mu         sync.Mutex
	sessions   map[string]*sessionRecord
	tokens     *security.TokenProvider
	sessionTTL time.Duration
	logger     *zap.Logger
	nowF       func() time.Time
}

// New returns an Authority issuing access tokens with tokens. sessionTTL <= 0 uses DefaultSessionTTL.
func New(tokens *security.TokenProvider, sessionTTL time.Duration, logger *zap.Logger) *Authority {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authority{
		sessions:   make(map[string]*sessionRecord),
		tokens:     tokens,
		sessionTTL: sessionTTL,
		logger:     logger,
		nowF:       time.Now,
	}
}

func (a *Authority) now() time.Time {
	return a.nowF().UTC()
}

// state returns "" when the session is live, otherwise the failure reason. Caller holds a.mu.
func (a *Authority) state(rec *sessionRecord) string {
	switch {
	case rec == nil:
		return authority.ReasonSessionNotFound
	case rec.revokedAt != nil:
		return authority.ReasonSessionRevoked
	case !a.now().Before(rec.expiresAt):
		return authority.ReasonSessionExpired
	}
	return ""
}

func (a *Authority) Create(ctx context.Context, req authority.CreateRequest) (*authority.Credentials, error) {
	if req.AccountID == "" || req.Client.DeviceID == "" {
		return nil, &authority.Failure{Op: "create", Reason: authority.ReasonInvalidRequest}
	}
	refresh, err := security.NewOpaqueToken(32)
	if err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()
	access, accessExp, err := a.tokens.IssueAccess(sessionID, req.AccountID, req.ActiveRole)
	if err != nil {
		return nil, err
	}

	now := a.now()
	rec := &sessionRecord{
		id:          sessionID,
		accountID:   req.AccountID,
		deviceID:    req.Client.DeviceID,
		descriptor:  req.Client.Descriptor,
		activeRole:  req.ActiveRole,
		refreshHash: security.HashRefreshToken(refresh),
		createdAt:   now,
		lastSeenAt:  &now,
		expiresAt:   now.Add(a.sessionTTL),
	}
	a.mu.Lock()
	a.sessions[sessionID] = rec
	a.mu.Unlock()

	a.logger.Info("session created",
		zap.String("session_id", sessionID),
		zap.String("account_id", req.AccountID),
		zap.String("device_id", req.Client.DeviceID),
		zap.String("active_role", req.ActiveRole),
	)
	return &authority.Credentials{
		SessionID:    sessionID,
		RefreshToken: refresh,
		AccessToken:  access,
		ExpiresAt:    accessExp,
	}, nil
}

func (a *Authority) Refresh(ctx context.Context, sessionID, refreshToken string) (*authority.AccessGrant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.sessions[sessionID]
	if reason := a.state(rec); reason != "" {
		return nil, &authority.Failure{Op: "refresh", Reason: reason}
	}
	if !security.RefreshTokenHashEqual(refreshToken, rec.refreshHash) {
		return nil, &authority.Failure{Op: "refresh", Reason: authority.ReasonRefreshTokenMismatch}
	}
	access, exp, err := a.tokens.IssueAccess(rec.id, rec.accountID, rec.activeRole)
	if err != nil {
		return nil, err
	}
	now := a.now()
	rec.lastSeenAt = &now
	return &authority.AccessGrant{AccessToken: access, ExpiresAt: exp}, nil
}

func (a *Authority) RevokeOne(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.sessions[sessionID]
	if rec == nil || rec.revokedAt != nil {
		return nil
	}
	now := a.now()
	rec.revokedAt = &now
	a.logger.Info("session revoked", zap.String("session_id", sessionID), zap.String("account_id", rec.accountID))
	return nil
}

// RevokeAll revokes the account's live sessions except exceptSessionID. When the call carries an
// authenticated identity it may only target that identity's own account.
func (a *Authority) RevokeAll(ctx context.Context, accountID, exceptSessionID string) (int, error) {
	if accountID == "" {
		return 0, &authority.Failure{Op: "revoke_all", Reason: authority.ReasonInvalidRequest}
	}
	if caller, ok := interceptors.GetAccountID(ctx); ok && caller != accountID {
		return 0, &authority.Failure{Op: "revoke_all", Reason: authority.ReasonInvalidRequest}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	n := 0
	for id, rec := range a.sessions {
		if rec.accountID != accountID || id == exceptSessionID || rec.revokedAt != nil {
			continue
		}
		rec.revokedAt = &now
		n++
	}
	a.logger.Info("sessions revoked", zap.String("account_id", accountID), zap.Int("count", n))
	return n, nil
}

// List returns the live sessions of the calling account, oldest first. The account is taken from
// the authenticated identity on ctx.
func (a *Authority) List(ctx context.Context, currentSessionID string) ([]domain.SessionListItem, error) {
	accountID, ok := interceptors.GetAccountID(ctx)
	if !ok || accountID == "" {
		return nil, &authority.Failure{Op: "list", Reason: authority.ReasonInvalidRequest}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	items := make([]domain.SessionListItem, 0)
	for _, rec := range a.sessions {
		if rec.accountID != accountID || a.state(rec) != "" {
			continue
		}
		item := domain.SessionListItem{
			SessionID:        rec.id,
			DeviceID:         rec.deviceID,
			ClientDescriptor: rec.descriptor,
			ActiveRole:       rec.activeRole,
			CreatedAt:        rec.createdAt,
			ExpiresAt:        rec.expiresAt,
			Current:          rec.id == currentSessionID,
		}
		if rec.lastSeenAt != nil {
			seen := *rec.lastSeenAt
			item.LastSeenAt = &seen
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].SessionID < items[j].SessionID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (a *Authority) Validate(ctx context.Context, sessionID string) (*authority.Validation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if reason := a.state(a.sessions[sessionID]); reason != "" {
		return &authority.Validation{Valid: false, Reason: reason}, nil
	}
	return &authority.Validation{Valid: true}, nil
}

// IsLive reports whether sessionID is neither revoked nor expired. It backs the bearer interceptor.
func (a *Authority) IsLive(ctx context.Context, sessionID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state(a.sessions[sessionID]) == "", nil
}

var _ authority.Client = (*Authority)(nil)
