package interceptors

import (
	"context"
	"testing"
)

func TestWithIdentity_SetsAllValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "acct-1", "session-1", "professional")

	accountID, ok := GetAccountID(ctx)
	if !ok {
		t.Fatal("GetAccountID should return true")
	}
	if accountID != "acct-1" {
		t.Errorf("account_id = %q, want %q", accountID, "acct-1")
	}

	sessionID, ok := GetSessionID(ctx)
	if !ok {
		t.Fatal("GetSessionID should return true")
	}
	if sessionID != "session-1" {
		t.Errorf("session_id = %q, want %q", sessionID, "session-1")
	}

	role, ok := GetActiveRole(ctx)
	if !ok {
		t.Fatal("GetActiveRole should return true")
	}
	if role != "professional" {
		t.Errorf("active_role = %q, want %q", role, "professional")
	}
}

func TestGetters_ReturnFalseWhenNotSet(t *testing.T) {
	ctx := context.Background()
	if v, ok := GetAccountID(ctx); ok || v != "" {
		t.Errorf("GetAccountID = %q, %v; want empty, false", v, ok)
	}
	if v, ok := GetSessionID(ctx); ok || v != "" {
		t.Errorf("GetSessionID = %q, %v; want empty, false", v, ok)
	}
	if v, ok := GetActiveRole(ctx); ok || v != "" {
		t.Errorf("GetActiveRole = %q, %v; want empty, false", v, ok)
	}
}

func TestContext_Isolation(t *testing.T) {
	base := context.Background()
	ctx1 := WithIdentity(base, "acct-1", "session-1", "client")
	ctx2 := WithIdentity(base, "acct-2", "session-2", "owner")

	a1, _ := GetAccountID(ctx1)
	a2, _ := GetAccountID(ctx2)
	if a1 != "acct-1" || a2 != "acct-2" {
		t.Errorf("account ids = %q, %q; want acct-1, acct-2", a1, a2)
	}
	if _, ok := GetAccountID(base); ok {
		t.Error("base context should be unchanged")
	}
}

func TestWithIdentity_Chaining(t *testing.T) {
	ctx := WithIdentity(context.Background(), "acct-1", "session-1", "client")
	ctx = WithIdentity(ctx, "acct-1", "session-2", "owner")

	sessionID, _ := GetSessionID(ctx)
	if sessionID != "session-2" {
		t.Errorf("session_id = %q, want session-2", sessionID)
	}
	role, _ := GetActiveRole(ctx)
	if role != "owner" {
		t.Errorf("active_role = %q, want owner", role)
	}
}

func TestWithIdentity_EmptyValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "", "", "")
	accountID, ok := GetAccountID(ctx)
	if !ok {
		t.Error("GetAccountID should return true for empty string")
	}
	if accountID != "" {
		t.Errorf("account_id = %q, want empty", accountID)
	}
}
