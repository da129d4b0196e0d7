package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"scheduling-platform/identity/internal/authority"
	"scheduling-platform/identity/internal/session/domain"
	"scheduling-platform/identity/internal/session/service"
)

type fakeSessions struct {
	mu          sync.Mutex
	sessionID   string
	expiresAt   *time.Time
	refreshErr  error
	valid       bool
	validateErr error
	items       []domain.SessionListItem
	listErr     error
	refreshes   int
}

func (f *fakeSessions) TokenInfo() domain.TokenInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.Evaluate(f.expiresAt, time.Now(), domain.DefaultRenewalWindow)
}

func (f *fakeSessions) HasActiveSession() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionID != ""
}

func (f *fakeSessions) CurrentSessionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionID
}

func (f *fakeSessions) RefreshSession(context.Context) (*service.Refreshed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	exp := time.Now().Add(time.Hour)
	f.expiresAt = &exp
	return &service.Refreshed{AccessToken: "secret-access"}, nil
}

func (f *fakeSessions) ValidateCurrentSession(context.Context) (bool, error) {
	return f.valid, f.validateErr
}

func (f *fakeSessions) ListActiveSessions(context.Context) ([]domain.SessionListItem, error) {
	return f.items, f.listErr
}

func serve(t *testing.T, f *fakeSessions, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(f, nil).Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestTokenInfo(t *testing.T) {
	exp := time.Now().Add(2 * time.Minute)
	rec := serve(t, &fakeSessions{sessionID: "sess-1", expiresAt: &exp}, http.MethodGet, "/session/token")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Active || body.SessionID != "sess-1" || body.Token.Status != domain.TokenValid || !body.Token.NeedsRefresh {
		t.Errorf("body = %+v", body)
	}

	rec = serve(t, &fakeSessions{}, http.MethodGet, "/session/token")
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Active || body.Token.Status != domain.TokenInvalid {
		t.Errorf("empty store body = %+v", body)
	}
}

func TestRefresh(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ok", nil, http.StatusOK},
		{"no session", service.ErrNoActiveSession, http.StatusUnauthorized},
		{"terminal", &service.RemoteError{Op: "refresh", Kind: authority.Terminal, Reason: authority.ReasonSessionRevoked}, http.StatusUnauthorized},
		{"transient", &service.RemoteError{Op: "refresh", Kind: authority.Transient, Reason: "timeout"}, http.StatusServiceUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeSessions{sessionID: "sess-1", refreshErr: tc.err}
			rec := serve(t, f, http.MethodPost, "/session/refresh")
			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			if f.refreshes != 1 {
				t.Errorf("refreshes = %d, want 1", f.refreshes)
			}
		})
	}
}

func TestRefresh_DoesNotExposeAccessToken(t *testing.T) {
	rec := serve(t, &fakeSessions{sessionID: "sess-1"}, http.MethodPost, "/session/refresh")
	var raw map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["access_token"]; ok {
		t.Error("response must not carry the access token")
	}
}

func TestValidate(t *testing.T) {
	rec := serve(t, &fakeSessions{valid: true}, http.MethodPost, "/session/validate")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || !body["valid"] {
		t.Errorf("body = %v, err %v", body, err)
	}

	transient := &service.RemoteError{Op: "validate", Kind: authority.Transient, Reason: "unavailable"}
	rec = serve(t, &fakeSessions{validateErr: transient}, http.MethodPost, "/session/validate")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("transient code = %d, want 503", rec.Code)
	}
}

func TestList(t *testing.T) {
	items := []domain.SessionListItem{{SessionID: "sess-1", DeviceID: "dev-1", Current: true}}
	rec := serve(t, &fakeSessions{items: items}, http.MethodGet, "/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body struct {
		Sessions []domain.SessionListItem `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 || !body.Sessions[0].Current {
		t.Errorf("sessions = %+v", body.Sessions)
	}

	rec = serve(t, &fakeSessions{}, http.MethodGet, "/sessions")
	if got := rec.Body.String(); got != "{\"sessions\":[]}\n" {
		t.Errorf("empty list body = %q", got)
	}
}
