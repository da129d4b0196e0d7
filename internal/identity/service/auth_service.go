// Package service is the integration façade the UI layer talks to: it signs in through the
// identity backend, caches the account's profile, and drives the session manager.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"scheduling-platform/identity/internal/identity/domain"
	"scheduling-platform/identity/internal/policy/engine"
	sessionservice "scheduling-platform/identity/internal/session/service"
	"scheduling-platform/identity/internal/telemetry"
)

const eventSource = "auth_service"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRoleGrantDenied  = errors.New("role grant denied")
)

// IdentityBackend is the external identity provider. It owns credentials and the role records.
type IdentityBackend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, error)
	SignInWithProvider(ctx context.Context, provider domain.ProviderKind, credential string) (*domain.Account, error)
	SignOut(ctx context.Context) error
	// AddRole grants role to the account and provisions its profile record. Granting a held role
	// succeeds without change.
	AddRole(ctx context.Context, accountID string, role domain.Role, businessID string) error
}

// Sessions is the part of the session manager the façade drives.
type Sessions interface {
	CreateSession(ctx context.Context, accountID, activeRole string) (*sessionservice.Created, error)
	RevokeCurrentSession(ctx context.Context) error
	RevokeAllSessions(ctx context.Context, accountID string, exceptCurrent bool) (int, error)
	CurrentSessionID() string
}

// Renewal starts the background renewal loop.
type Renewal interface {
	Start(onError func(error)) (stop func())
}

// LoginResult is returned by every sign-in path and by SwitchActiveRole. Degraded means the
// account is authenticated but no session is being tracked; Warning says why.
type LoginResult struct {
	Profile   *domain.Profile `json:"profile"`
	SessionID string          `json:"session_id,omitempty"`
	Degraded  bool            `json:"degraded"`
	Warning   string          `json:"warning,omitempty"`
}

// AuthService caches the signed-in profile. Multi-step operations are serialized by opMu; the
// profile itself is guarded by mu so reads never wait on a network call.
type AuthService struct {
	backend  IdentityBackend
	sessions Sessions
	renewer  Renewal
	policy   engine.RoleGrantEvaluator
	logger   *zap.Logger
	emitter  telemetry.EventEmitter

	opMu    sync.Mutex
	mu      sync.RWMutex
	profile *domain.Profile
}

// NewAuthService returns an AuthService. renewer, policy, logger and emitter may be nil; a nil
// policy allows every known role.
func NewAuthService(
	backend IdentityBackend,
	sessions Sessions,
	renewer Renewal,
	policy engine.RoleGrantEvaluator,
	logger *zap.Logger,
	emitter telemetry.EventEmitter,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		renewer:  renewer,
		policy:   policy,
		logger:   logger,
		emitter:  emitter,
	}
}

// Profile returns a copy of the cached profile, or nil when signed out.
func (s *AuthService) Profile() *domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	return s.profile.Clone()
}

// IsAuthenticated reports whether a profile is cached.
func (s *AuthService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

func (s *AuthService) setProfile(p *domain.Profile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// LoginWithPassword signs in with email and password.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*LoginResult, error) {
	return s.login(ctx, domain.ProviderPassword, func(ctx context.Context) (*domain.Account, error) {
		return s.backend.SignInWithPassword(ctx, email, password)
	})
}

// LoginWithProvider signs in with a federated provider credential (an id token).
func (s *AuthService) LoginWithProvider(ctx context.Context, provider domain.ProviderKind, credential string) (*LoginResult, error) {
	if provider != domain.ProviderGoogle && provider != domain.ProviderApple {
		return nil, fmt.Errorf("identity: unsupported provider %q", provider)
	}
	return s.login(ctx, provider, func(ctx context.Context) (*domain.Account, error) {
		return s.backend.SignInWithProvider(ctx, provider, credential)
	})
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	return s.LoginWithProvider(ctx, domain.ProviderGoogle, idToken)
}

func (s *AuthService) LoginWithApple(ctx context.Context, idToken string) (*LoginResult, error) {
	return s.LoginWithProvider(ctx, domain.ProviderApple, idToken)
}

// login authenticates, caches the profile, then creates a session. A session that cannot be
// created leaves the login successful but degraded.
func (s *AuthService) login(ctx context.Context, method domain.ProviderKind, signIn func(context.Context) (*domain.Account, error)) (*LoginResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	acct, err := signIn(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := domain.ProfileFromAccount(acct)
	if err != nil {
		return nil, fmt.Errorf("identity backend returned an unusable account: %w", err)
	}
	s.setProfile(profile)

	res := s.establish(ctx, profile, "login")
	s.emit(telemetry.EventLogin, profile.ID(), res.SessionID, map[string]any{
		"method":      string(method),
		"active_role": string(profile.ActiveRole()),
		"degraded":    res.Degraded,
	})
	return res, nil
}

// establish creates a session for profile's active role and reports the outcome.
func (s *AuthService) establish(ctx context.Context, profile *domain.Profile, op string) *LoginResult {
	res := &LoginResult{Profile: profile.Clone()}
	created, err := s.sessions.CreateSession(ctx, profile.ID(), string(profile.ActiveRole()))
	if err != nil {
		res.Degraded = true
		res.Warning = "session tracking unavailable: " + err.Error()
		s.logger.Warn("session could not be created; continuing without session tracking",
			zap.String("op", op), zap.String("account_id", profile.ID()), zap.Error(err))
		return res
	}
	res.SessionID = created.SessionID
	return res
}

// Logout revokes the current session, then signs out of the identity backend. The profile is
// dropped even when sign-out fails; that error is returned.
func (s *AuthService) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	accountID := ""
	if p := s.Profile(); p != nil {
		accountID = p.ID()
	}
	sessionID := s.sessions.CurrentSessionID()
	if err := s.sessions.RevokeCurrentSession(ctx); err != nil {
		s.logger.Warn("logout: revoke current session", zap.Error(err))
	}
	err := s.backend.SignOut(ctx)
	s.setProfile(nil)
	s.emit(telemetry.EventLogout, accountID, sessionID, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// SwitchActiveRole makes role the active one and re-establishes the session for it. Switching to
// the current role is a no-op. A role the account does not hold returns domain.ErrRoleNotHeld and
// changes nothing.
func (s *AuthService) SwitchActiveRole(ctx context.Context, role domain.Role) (*LoginResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	next := s.Profile()
	if next == nil {
		return nil, ErrNotAuthenticated
	}
	previous := next.ActiveRole()
	if err := next.SwitchActiveRole(role); err != nil {
		return nil, err
	}
	if previous == role {
		return &LoginResult{Profile: next, SessionID: s.sessions.CurrentSessionID()}, nil
	}

	if err := s.sessions.RevokeCurrentSession(ctx); err != nil {
		s.logger.Warn("switch role: revoke previous session", zap.Error(err))
	}
	s.setProfile(next)
	res := s.establish(ctx, next, "switch_role")
	s.emit(telemetry.EventRoleSwitched, next.ID(), res.SessionID, map[string]any{
		"from":     string(previous),
		"to":       string(role),
		"degraded": res.Degraded,
	})
	return res, nil
}

// AddRole grants role to the signed-in account. The role policy is consulted first, then the
// identity backend; the local profile changes only after both succeed. The active role is not
// changed. Adding a held role is a no-op.
func (s *AuthService) AddRole(ctx context.Context, role domain.Role, businessID string) (*domain.Profile, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current := s.Profile()
	if current == nil {
		return nil, ErrNotAuthenticated
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	if current.HasRole(role) {
		return current, nil
	}

	if s.policy != nil {
		held := make([]string, 0, len(current.Roles()))
		for _, r := range current.Roles() {
			held = append(held, string(r))
		}
		decision, err := s.policy.AllowRoleGrant(ctx, engine.RoleGrantInput{
			AccountID:  current.ID(),
			Role:       string(role),
			BusinessID: businessID,
			HeldRoles:  held,
		})
		if err != nil {
			return nil, fmt.Errorf("role policy: %w", err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%w: %s", ErrRoleGrantDenied, decision.Reason)
		}
	}

	if err := s.backend.AddRole(ctx, current.ID(), role, businessID); err != nil {
		return nil, fmt.Errorf("add role: %w", err)
	}

	s.mu.Lock()
	if s.profile == nil || s.profile.ID() != current.ID() {
		// Signed out by a terminal renewal failure while the backend call was in flight.
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	if _, err := s.profile.AddRole(role); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	updated := s.profile.Clone()
	s.mu.Unlock()

	s.emit(telemetry.EventRoleAdded, updated.ID(), "", map[string]any{"role": string(role)})
	return updated, nil
}

// RevokeAllSessions signs the account out of other devices, or all devices when exceptCurrent is
// false.
func (s *AuthService) RevokeAllSessions(ctx context.Context, exceptCurrent bool) (int, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p := s.Profile()
	if p == nil {
		return 0, ErrNotAuthenticated
	}
	return s.sessions.RevokeAllSessions(ctx, p.ID(), exceptCurrent)
}

// StartAutoRenewal starts the renewal loop. A terminal renewal failure drops the cached profile
// before onError is called, unless a newer session has replaced the one that failed. The returned
// stop is idempotent.
func (s *AuthService) StartAutoRenewal(onError func(error)) (stop func()) {
	if s.renewer == nil {
		return func() {}
	}
	return s.renewer.Start(func(err error) {
		if sessionservice.IsTerminal(err) {
			s.dropEndedSession(err)
		}
		if onError != nil {
			onError(err)
		}
	})
}

// dropEndedSession signs out locally after a terminal renewal failure. It runs under opMu so a
// login in progress finishes first; if that login left a different session current, the failure is
// stale and the profile stays.
func (s *AuthService) dropEndedSession(err error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	failed := ""
	var re *sessionservice.RemoteError
	if errors.As(err, &re) {
		failed = re.SessionID
	}
	if current := s.sessions.CurrentSessionID(); current != "" && current != failed {
		s.logger.Debug("ignoring terminal renewal failure of a replaced session",
			zap.String("failed_session_id", failed),
			zap.String("session_id", current),
		)
		return
	}
	s.logger.Warn("session ended during renewal; signing out locally", zap.Error(err))
	s.setProfile(nil)
}

func (s *AuthService) emit(eventType, accountID, sessionID string, meta any) {
	if s.emitter == nil {
		return
	}
	ev := telemetry.NewEvent(eventType, eventSource, meta)
	ev.AccountID = accountID
	ev.SessionID = sessionID
	telemetry.EmitAsync(s.emitter, s.logger, ev)
}
