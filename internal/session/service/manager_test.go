package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"scheduling-platform/identity/internal/authority"
	devicedomain "scheduling-platform/identity/internal/device/domain"
	"scheduling-platform/identity/internal/localstore"
	"scheduling-platform/identity/internal/session/domain"
	"scheduling-platform/identity/internal/session/repository"
)

// fakeAuthority is an in-memory authority.Client with injectable failures.
type fakeAuthority struct {
	mu sync.Mutex

	nextID      int
	sessions    map[string]string // session id -> account id
	revoked     map[string]bool
	expiresIn   time.Duration
	createErr   error
	refreshErr  error
	revokeErr   error
	revokeAllN  int
	validateErr error
	invalid     bool

	refreshCalls int
	revokeCalls  int
	lastExcept   string
	// refreshGate, when set, blocks Refresh until closed; refreshEntered is signalled on entry.
	refreshGate    chan struct{}
	refreshEntered chan struct{}
	// refreshCtxErr is the call context's error once the gate opened.
	refreshCtxErr error
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{
		sessions:  make(map[string]string),
		revoked:   make(map[string]bool),
		expiresIn: 15 * time.Minute,
	}
}

func (f *fakeAuthority) Create(ctx context.Context, req authority.CreateRequest) (*authority.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	id := "s" + string(rune('0'+f.nextID))
	f.sessions[id] = req.AccountID
	return &authority.Credentials{
		SessionID:    id,
		RefreshToken: "r" + id,
		AccessToken:  "t" + string(rune('0'+f.nextID)),
		ExpiresAt:    time.Now().Add(f.expiresIn),
	}, nil
}

func (f *fakeAuthority) Refresh(ctx context.Context, sessionID, refreshToken string) (*authority.AccessGrant, error) {
	f.mu.Lock()
	f.refreshCalls++
	gate, entered := f.refreshGate, f.refreshEntered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCtxErr = ctx.Err()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &authority.AccessGrant{AccessToken: "t-refreshed", ExpiresAt: time.Now().Add(f.expiresIn)}, nil
}

func (f *fakeAuthority) RevokeOne(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls++
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked[sessionID] = true
	return nil
}

func (f *fakeAuthority) RevokeAll(ctx context.Context, accountID, except string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastExcept = except
	if f.revokeErr != nil {
		return 0, f.revokeErr
	}
	if f.revokeAllN > 0 {
		return f.revokeAllN, nil
	}
	n := 0
	for id, acct := range f.sessions {
		if acct == accountID && id != except && !f.revoked[id] {
			f.revoked[id] = true
			n++
		}
	}
	return n, nil
}

func (f *fakeAuthority) List(ctx context.Context, current string) ([]domain.SessionListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []domain.SessionListItem{}
	for id := range f.sessions {
		if !f.revoked[id] {
			// The authority's own flag is ignored by the manager.
			items = append(items, domain.SessionListItem{SessionID: id, Current: true})
		}
	}
	return items, nil
}

func (f *fakeAuthority) Validate(ctx context.Context, sessionID string) (*authority.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	if f.invalid || f.revoked[sessionID] {
		return &authority.Validation{Valid: false, Reason: authority.ReasonSessionRevoked}, nil
	}
	return &authority.Validation{Valid: true}, nil
}

type fixedDevice struct{}

func (fixedDevice) GetOrCreateDeviceID(ctx context.Context) devicedomain.DeviceIdentity {
	return devicedomain.DeviceIdentity{ID: "device-1"}
}

// failingStore wraps a Store and fails Save when saveErr is set.
type failingStore struct {
	repository.Store
	saveErr error
}

func (s *failingStore) Save(ctx context.Context, r domain.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(ctx, r)
}

type fixture struct {
	mgr   *Manager
	auth  *fakeAuthority
	store repository.Store
	creds *Credentials
}

func newFixture(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	if store == nil {
		store = repository.NewKVStore(localstore.NewMemoryKV())
	}
	f := &fixture{auth: newFakeAuthority(), store: store, creds: NewCredentials()}
	mgr, err := NewManager(context.Background(), Options{
		Store:            store,
		Devices:          fixedDevice{},
		Authority:        f.auth,
		Runtime:          f.creds,
		ClientDescriptor: "test-client",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	f.mgr = mgr
	return f
}

func (f *fixture) stored(t *testing.T) *domain.Record {
	t.Helper()
	rec, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return rec
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	if _, err := NewManager(context.Background(), Options{}); err == nil {
		t.Fatal("NewManager with no dependencies should fail")
	}
}

func TestCreateSession_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	created, err := f.mgr.CreateSession(context.Background(), "acct-1", "client")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if created.SessionID != "s1" || created.AccessToken != "t1" {
		t.Errorf("created = %+v, want s1/t1", created)
	}
	info := f.mgr.TokenInfo()
	if info.Status != domain.TokenValid || info.NeedsRefresh {
		t.Errorf("TokenInfo = %+v, want valid without refresh", info)
	}
	if !f.mgr.HasActiveSession() {
		t.Error("HasActiveSession = false after create")
	}
	if rec := f.stored(t); rec == nil || rec.SessionID != "s1" || rec.RefreshToken != "rs1" {
		t.Errorf("stored = %+v", rec)
	}
	if f.creds.AccessToken() != "t1" {
		t.Errorf("runtime token = %q, want t1", f.creds.AccessToken())
	}
}

func TestCreateSession_ReplacesLocalRecordWithoutRemoteRevoke(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "owner"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if f.mgr.CurrentSessionID() != "s2" {
		t.Errorf("current = %q, want s2", f.mgr.CurrentSessionID())
	}
	if f.auth.revokeCalls != 0 {
		t.Errorf("revoke calls = %d, want 0", f.auth.revokeCalls)
	}
}

func TestCreateSession_RemoteFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.auth.createErr = status.Error(codes.Unavailable, "down")

	_, err := f.mgr.CreateSession(context.Background(), "acct-1", "client")
	if !errors.Is(err, ErrSessionCreation) {
		t.Fatalf("err = %v, want ErrSessionCreation", err)
	}
	if !errors.Is(err, ErrTransient) {
		t.Errorf("err = %v, want transient cause", err)
	}
	var re *RemoteError
	if !errors.As(err, &re) || re.Op != "create" {
		t.Errorf("RemoteError = %+v", re)
	}
	if f.mgr.HasActiveSession() || f.stored(t) != nil {
		t.Error("no session should be stored")
	}
}

func TestCreateSession_SaveFailureRevokesRemote(t *testing.T) {
	store := &failingStore{Store: repository.NewKVStore(localstore.NewMemoryKV()), saveErr: errors.New("disk full")}
	f := newFixture(t, store)

	_, err := f.mgr.CreateSession(context.Background(), "acct-1", "client")
	if !errors.Is(err, ErrSessionCreation) {
		t.Fatalf("err = %v, want ErrSessionCreation", err)
	}
	if !f.auth.revoked["s1"] {
		t.Error("unsaved session should be revoked remotely")
	}
	if f.mgr.HasActiveSession() {
		t.Error("HasActiveSession = true after failed save")
	}
}

func TestTokenInfo_ExpiredStoredSession(t *testing.T) {
	store := repository.NewKVStore(localstore.NewMemoryKV())
	if err := store.Save(context.Background(), domain.Record{
		SessionID: "s1", RefreshToken: "r1", ExpiresAt: time.Now().Add(-time.Second),
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f := newFixture(t, store)

	info := f.mgr.TokenInfo()
	if info.Status != domain.TokenExpired || !info.NeedsRefresh {
		t.Fatalf("TokenInfo = %+v, want expired needing refresh", info)
	}
	if info.ExpiresIn == nil || *info.ExpiresIn != 0 {
		t.Errorf("ExpiresIn = %v, want 0", info.ExpiresIn)
	}
}

func TestRefreshSession_NoActiveSession(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.mgr.RefreshSession(context.Background())
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
	if f.stored(t) != nil {
		t.Error("store should remain empty")
	}
	if f.auth.refreshCalls != 0 {
		t.Errorf("refresh calls = %d, want 0", f.auth.refreshCalls)
	}
}

func TestRefreshSession_UpdatesExpiryOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.auth.expiresIn = 2 * time.Minute
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !f.mgr.TokenInfo().NeedsRefresh {
		t.Fatal("2m token should need refresh with a 5m window")
	}

	f.auth.expiresIn = time.Hour
	refreshed, err := f.mgr.RefreshSession(ctx)
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if refreshed.AccessToken != "t-refreshed" || f.creds.AccessToken() != "t-refreshed" {
		t.Errorf("access token = %q / runtime %q", refreshed.AccessToken, f.creds.AccessToken())
	}
	rec := f.stored(t)
	if rec.SessionID != "s1" || rec.RefreshToken != "rs1" {
		t.Errorf("stored = %+v, id and refresh token must not change", rec)
	}
	if time.Until(rec.ExpiresAt) < 50*time.Minute {
		t.Errorf("stored expiry = %v, want ~1h out", rec.ExpiresAt)
	}
	if f.mgr.TokenInfo().NeedsRefresh {
		t.Error("TokenInfo should not need refresh after renewal")
	}
}

func TestRefreshSession_Failures(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		terminal  bool
		wantClear bool
	}{
		{"revoked", &authority.Failure{Op: "refresh", Reason: authority.ReasonSessionRevoked}, true, true},
		{"token mismatch", &authority.Failure{Op: "refresh", Reason: authority.ReasonRefreshTokenMismatch}, true, true},
		{"not found code", status.Error(codes.NotFound, "gone"), true, true},
		{"unavailable", status.Error(codes.Unavailable, "down"), false, false},
		{"deadline", context.DeadlineExceeded, false, false},
		{"unknown error", errors.New("socket closed"), false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			f.auth.refreshErr = tc.err

			_, err := f.mgr.RefreshSession(ctx)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrTerminal); got != tc.terminal {
				t.Errorf("errors.Is(err, ErrTerminal) = %v, want %v", got, tc.terminal)
			}
			if got := errors.Is(err, ErrTransient); got == tc.terminal {
				t.Errorf("errors.Is(err, ErrTransient) = %v, want %v", got, !tc.terminal)
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("err should wrap the authority error")
			}
			if got := !f.mgr.HasActiveSession(); got != tc.wantClear {
				t.Errorf("cleared = %v, want %v", got, tc.wantClear)
			}
			if got := f.stored(t) == nil; got != tc.wantClear {
				t.Errorf("store cleared = %v, want %v", got, tc.wantClear)
			}
			if got := f.creds.AccessToken() == ""; got != tc.wantClear {
				t.Errorf("runtime cleared = %v, want %v", got, tc.wantClear)
			}
		})
	}
}

func TestRefreshSession_TerminalMakesTokenInvalid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	f.auth.refreshErr = &authority.Failure{Op: "refresh", Reason: authority.ReasonSessionRevoked}
	if _, err := f.mgr.RefreshSession(ctx); err == nil {
		t.Fatal("expected error")
	}
	if f.mgr.HasActiveSession() {
		t.Error("HasActiveSession = true after terminal refresh failure")
	}
	if f.mgr.TokenInfo().Status != domain.TokenInvalid {
		t.Errorf("TokenInfo status = %q, want invalid", f.mgr.TokenInfo().Status)
	}
}

func TestRefreshSession_ConcurrentCallersShareOneCall(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	gate := make(chan struct{})
	f.auth.refreshGate = gate
	f.auth.refreshEntered = make(chan struct{}, 8)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mgr.RefreshSession(ctx)
			errs <- err
		}()
		if i == 0 {
			<-f.auth.refreshEntered
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("RefreshSession: %v", err)
		}
	}
	if f.auth.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", f.auth.refreshCalls)
	}
}

func TestRefreshSession_CancelledCallerDoesNotCancelSharedCall(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.mgr.CreateSession(context.Background(), "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	gate := make(chan struct{})
	f.auth.refreshGate = gate
	f.auth.refreshEntered = make(chan struct{}, 1)

	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan error, 1)
	go func() {
		_, err := f.mgr.RefreshSession(ctxA)
		doneA <- err
	}()
	<-f.auth.refreshEntered

	doneB := make(chan error, 1)
	go func() {
		_, err := f.mgr.RefreshSession(context.Background())
		doneB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-doneA; !errors.Is(err, ErrTransient) {
		t.Errorf("cancelled caller err = %v, want ErrTransient", err)
	}
	close(gate)
	if err := <-doneB; err != nil {
		t.Errorf("live caller RefreshSession: %v", err)
	}
	if f.auth.refreshCtxErr != nil {
		t.Errorf("authority call context ended early: %v", f.auth.refreshCtxErr)
	}
	if f.auth.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", f.auth.refreshCalls)
	}
	if f.creds.AccessToken() != "t-refreshed" {
		t.Errorf("runtime token = %q, want refreshed", f.creds.AccessToken())
	}
}

// Callers see only the kind sentinel; the transport error stays on Err for logging.
func TestRemoteError_HidesTransportCause(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	cause := status.Error(codes.Unavailable, "connection refused")
	f.auth.refreshErr = cause

	_, err := f.mgr.RefreshSession(ctx)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	if errors.Is(err, cause) {
		t.Error("transport error should not be in the chain")
	}
	if _, ok := status.FromError(err); ok {
		t.Error("status.FromError should not see a gRPC status")
	}
	var re *RemoteError
	if !errors.As(err, &re) || re.Err != cause || re.SessionID != "s1" {
		t.Errorf("RemoteError = %+v, want cause and session s1", re)
	}
}

func TestRevokeCurrentSession_RevokeWinsOverInFlightRefresh(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	gate := make(chan struct{})
	f.auth.refreshGate = gate
	f.auth.refreshEntered = make(chan struct{}, 1)

	refreshDone := make(chan error, 1)
	go func() {
		_, err := f.mgr.RefreshSession(ctx)
		refreshDone <- err
	}()
	<-f.auth.refreshEntered

	revokeDone := make(chan error, 1)
	go func() { revokeDone <- f.mgr.RevokeCurrentSession(ctx) }()

	close(gate)
	if err := <-refreshDone; err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if err := <-revokeDone; err != nil {
		t.Fatalf("RevokeCurrentSession: %v", err)
	}
	if f.mgr.HasActiveSession() || f.stored(t) != nil {
		t.Error("revoke's clear must not be overwritten by the earlier refresh")
	}
	if f.creds.AccessToken() != "" {
		t.Error("runtime credential should be cleared")
	}
}

func TestRevokeCurrentSession_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := f.mgr.RevokeCurrentSession(ctx); err != nil {
			t.Fatalf("RevokeCurrentSession #%d: %v", i+1, err)
		}
	}
	if f.auth.revokeCalls != 1 {
		t.Errorf("remote revoke calls = %d, want 1", f.auth.revokeCalls)
	}
	if f.mgr.HasActiveSession() {
		t.Error("HasActiveSession = true after revoke")
	}
}

func TestRevokeCurrentSession_RemoteFailureStillClears(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	f.auth.revokeErr = status.Error(codes.Unavailable, "down")

	if err := f.mgr.RevokeCurrentSession(ctx); err != nil {
		t.Fatalf("RevokeCurrentSession: %v", err)
	}
	if f.mgr.HasActiveSession() || f.stored(t) != nil {
		t.Error("local session should be cleared even when the authority fails")
	}
}

func TestRevokeAllSessions_ExceptCurrent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	// Two other devices of the same account.
	f.auth.sessions["laptop"] = "acct-1"
	f.auth.sessions["tablet"] = "acct-1"
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	n, err := f.mgr.RevokeAllSessions(ctx, "acct-1", true)
	if err != nil {
		t.Fatalf("RevokeAllSessions: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	if f.auth.lastExcept != "s1" {
		t.Errorf("except = %q, want s1", f.auth.lastExcept)
	}
	if rec := f.stored(t); rec == nil || rec.SessionID != "s1" {
		t.Errorf("stored = %+v, want s1 untouched", rec)
	}
	if !f.mgr.HasActiveSession() {
		t.Error("current session should survive")
	}
}

func TestRevokeAllSessions_IncludingCurrentClears(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.auth.sessions["laptop"] = "acct-1"
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	n, err := f.mgr.RevokeAllSessions(ctx, "acct-1", false)
	if err != nil {
		t.Fatalf("RevokeAllSessions: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	if f.mgr.HasActiveSession() || f.stored(t) != nil {
		t.Error("local session should be cleared")
	}
}

func TestRevokeAllSessions_TransientFailureKeepsState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	f.auth.revokeErr = status.Error(codes.Unavailable, "down")

	_, err := f.mgr.RevokeAllSessions(ctx, "acct-1", false)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
	if !f.mgr.HasActiveSession() {
		t.Error("transient failure must not clear local state")
	}
}

func TestListActiveSessions_AnnotatesCurrent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.auth.sessions["laptop"] = "acct-1"
	if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	items, err := f.mgr.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("ListActiveSessions: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if want := it.SessionID == "s1"; it.Current != want {
			t.Errorf("%s current = %v, want %v", it.SessionID, it.Current, want)
		}
	}
}

func TestValidateCurrentSession(t *testing.T) {
	testCases := []struct {
		name        string
		setup       func(a *fakeAuthority)
		want        bool
		wantErr     bool
		wantCleared bool
	}{
		{"valid", func(a *fakeAuthority) {}, true, false, false},
		{"invalid self-heals", func(a *fakeAuthority) { a.invalid = true }, false, false, true},
		{"terminal error clears", func(a *fakeAuthority) { a.validateErr = status.Error(codes.NotFound, "gone") }, false, false, true},
		{"transient error keeps state", func(a *fakeAuthority) { a.validateErr = status.Error(codes.Unavailable, "down") }, false, true, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			if _, err := f.mgr.CreateSession(ctx, "acct-1", "client"); err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			tc.setup(f.auth)

			got, err := f.mgr.ValidateCurrentSession(ctx)
			if got != tc.want {
				t.Errorf("valid = %v, want %v", got, tc.want)
			}
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if cleared := !f.mgr.HasActiveSession(); cleared != tc.wantCleared {
				t.Errorf("cleared = %v, want %v", cleared, tc.wantCleared)
			}
			if tc.wantCleared && f.mgr.TokenInfo().Status != domain.TokenInvalid {
				t.Errorf("TokenInfo status = %q, want invalid", f.mgr.TokenInfo().Status)
			}
		})
	}
}

func TestValidateCurrentSession_NoSession(t *testing.T) {
	f := newFixture(t, nil)
	ok, err := f.mgr.ValidateCurrentSession(context.Background())
	if ok || err != nil {
		t.Errorf("ValidateCurrentSession = %v, %v; want false, nil", ok, err)
	}
}
