package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e, err := NewOPAEvaluator("", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e, err := NewOPAEvaluator("", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	testCases := []struct {
		name       string
		in         RoleGrantInput
		wantAllow  bool
		wantReason string
	}{
		{"client", RoleGrantInput{AccountID: "a", Role: "client"}, true, ""},
		{"professional", RoleGrantInput{AccountID: "a", Role: "professional", HeldRoles: []string{"client"}}, true, ""},
		{"owner with business", RoleGrantInput{AccountID: "a", Role: "owner", BusinessID: "biz-1"}, true, ""},
		{"owner without business", RoleGrantInput{AccountID: "a", Role: "owner"}, false, "business_id_required"},
		{"unknown role", RoleGrantInput{AccountID: "a", Role: "admin"}, false, "role_not_grantable"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := e.AllowRoleGrant(context.Background(), tc.in)
			if err != nil {
				t.Fatalf("AllowRoleGrant: %v", err)
			}
			if d.Allowed != tc.wantAllow || d.Reason != tc.wantReason {
				t.Errorf("decision = %+v, want allow=%v reason=%q", d, tc.wantAllow, tc.wantReason)
			}
		})
	}
}

func TestOPAEvaluator_PolicyFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.rego")
	policy := `package scheduling.role_grant

default allow = false
default reason = "clients_only"

allow if {
	input.role == "client"
}
`
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	e, err := NewOPAEvaluator(path, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	d, err := e.AllowRoleGrant(context.Background(), RoleGrantInput{Role: "professional"})
	if err != nil {
		t.Fatalf("AllowRoleGrant: %v", err)
	}
	if d.Allowed || d.Reason != "clients_only" {
		t.Errorf("decision = %+v", d)
	}
}

func TestNewOPAEvaluator_Errors(t *testing.T) {
	if _, err := NewOPAEvaluator(filepath.Join(t.TempDir(), "missing.rego"), nil); err == nil {
		t.Error("missing policy file should fail")
	}
	path := filepath.Join(t.TempDir(), "bad.rego")
	if err := os.WriteFile(path, []byte("package broken\n\nallow if {"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewOPAEvaluator(path, nil); err == nil {
		t.Error("invalid policy should fail to compile")
	}
}
