package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"scheduling-platform/identity/internal/identity/domain"
	"scheduling-platform/identity/internal/identity/service"
)

// Failure is a success=false response from the identity backend.
type Failure struct {
	Op     string
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("identity: %s failed: %s", f.Op, f.Reason)
}

// Client implements service.IdentityBackend over a gRPC connection.
type Client struct {
	conn        grpc.ClientConnInterface
	callTimeout time.Duration
}

func NewClient(conn grpc.ClientConnInterface, callTimeout time.Duration) *Client {
	return &Client{conn: conn, callTimeout: callTimeout}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	return c.conn.Invoke(ctx, method, in, out)
}

func failure(op, reason string) error {
	switch reason {
	case ReasonInvalidCredentials:
		return domain.ErrInvalidCredentials
	case ReasonUnknownRole:
		return fmt.Errorf("%w (%s)", domain.ErrUnknownRole, op)
	}
	return &Failure{Op: op, Reason: reason}
}

func fromAccount(op string, a *Account) (*domain.Account, error) {
	if a == nil {
		return nil, &Failure{Op: op, Reason: "missing_account"}
	}
	out := &domain.Account{ID: a.ID, ActiveRole: domain.Role(a.ActiveRole), Roles: make([]domain.Role, 0, len(a.Roles))}
	for _, r := range a.Roles {
		out.Roles = append(out.Roles, domain.Role(r))
	}
	return out, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, error) {
	var out SignInResponse
	if err := c.invoke(ctx, MethodSignInWithPassword, &SignInWithPasswordRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, failure("sign_in", out.Reason)
	}
	return fromAccount("sign_in", out.Account)
}

func (c *Client) SignInWithProvider(ctx context.Context, provider domain.ProviderKind, credential string) (*domain.Account, error) {
	var out SignInResponse
	if err := c.invoke(ctx, MethodSignInWithProvider, &SignInWithProviderRequest{Provider: string(provider), Credential: credential}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, failure("sign_in_provider", out.Reason)
	}
	return fromAccount("sign_in_provider", out.Account)
}

func (c *Client) SignOut(ctx context.Context) error {
	var out SignOutResponse
	if err := c.invoke(ctx, MethodSignOut, &SignOutRequest{}, &out); err != nil {
		return err
	}
	if !out.Success {
		return failure("sign_out", out.Reason)
	}
	return nil
}

func (c *Client) AddRole(ctx context.Context, accountID string, role domain.Role, businessID string) error {
	var out AddRoleResponse
	if err := c.invoke(ctx, MethodAddRole, &AddRoleRequest{AccountID: accountID, Role: string(role), BusinessID: businessID}, &out); err != nil {
		return err
	}
	if !out.Success {
		return failure("add_role", out.Reason)
	}
	return nil
}

var _ service.IdentityBackend = (*Client)(nil)
