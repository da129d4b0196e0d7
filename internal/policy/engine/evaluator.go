package engine

import "context"

// RoleGrantInput is what the role-grant policy sees.
type RoleGrantInput struct {
	AccountID  string
	Role       string
	BusinessID string
	HeldRoles  []string
}

// Decision is the policy outcome. Reason is set when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  string
}

// RoleGrantEvaluator decides whether an account may add a role.
type RoleGrantEvaluator interface {
	AllowRoleGrant(ctx context.Context, in RoleGrantInput) (Decision, error)
}
