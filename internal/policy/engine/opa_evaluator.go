// Package engine evaluates the role-grant policy with OPA Rego.
package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"
)

const rolePolicyQuery = "data.scheduling.role_grant"

// Default policy: client and professional can be added freely; owner needs the business it owns.
const defaultRolePolicy = `package scheduling.role_grant

default allow = false
default reason = "role_not_grantable"

allow if {
	input.role == "client"
}

allow if {
	input.role == "professional"
}

allow if {
	input.role == "owner"
	input.business_id != ""
}

reason = "" if {
	allow
}

reason = "business_id_required" if {
	input.role == "owner"
	input.business_id == ""
}
`

// OPAEvaluator evaluates role-grant decisions using OPA Rego.
type OPAEvaluator struct {
	compiler *ast.Compiler
	logger   *zap.Logger
}

// NewOPAEvaluator compiles the role-grant policy. policyFile, when non-empty, replaces the default
// policy; it must define package scheduling.role_grant with allow and reason.
func NewOPAEvaluator(policyFile string, logger *zap.Logger) (*OPAEvaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := defaultRolePolicy
	if policyFile != "" {
		b, err := os.ReadFile(policyFile)
		if err != nil {
			return nil, fmt.Errorf("read role policy: %w", err)
		}
		src = string(b)
		logger.Info("role policy loaded", zap.String("file", policyFile))
	}
	compiler, err := ast.CompileModules(map[string]string{"role_grant.rego": src})
	if err != nil {
		return nil, fmt.Errorf("compile role policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler, logger: logger}, nil
}

// HealthCheck evaluates the compiled policy against a minimal input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.eval(ctx, RoleGrantInput{AccountID: "health", Role: "client"})
	return err
}

// AllowRoleGrant evaluates the policy for in. An evaluation error denies the grant.
func (e *OPAEvaluator) AllowRoleGrant(ctx context.Context, in RoleGrantInput) (Decision, error) {
	d, err := e.eval(ctx, in)
	if err != nil {
		e.logger.Warn("role policy evaluation failed; denying", zap.String("role", in.Role), zap.Error(err))
		return Decision{Allowed: false, Reason: "policy_error"}, err
	}
	return d, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, in RoleGrantInput) (Decision, error) {
	held := make([]interface{}, 0, len(in.HeldRoles))
	for _, r := range in.HeldRoles {
		held = append(held, r)
	}
	input := map[string]interface{}{
		"account_id":  in.AccountID,
		"role":        in.Role,
		"business_id": in.BusinessID,
		"held_roles":  held,
	}
	rs, err := rego.New(
		rego.Query(rolePolicyQuery),
		rego.Compiler(e.compiler),
		rego.Input(input),
	).Eval(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("eval role policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("role policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("role policy returned %T", rs[0].Expressions[0].Value)
	}
	d := Decision{}
	d.Allowed, _ = doc["allow"].(bool)
	if !d.Allowed {
		d.Reason, _ = doc["reason"].(string)
		if d.Reason == "" {
			d.Reason = "denied"
		}
	}
	return d, nil
}
