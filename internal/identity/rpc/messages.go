// Package rpc exposes an identity backend over gRPC (service identity.accounts.v1.IdentityBackend)
// with JSON-encoded messages, and a client the session agent signs in through.
package rpc

type Account struct {
	ID         string   `json:"id"`
	Roles      []string `json:"roles"`
	ActiveRole string   `json:"active_role"`
}

type SignInWithPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInWithProviderRequest struct {
	Provider   string `json:"provider"`
	Credential string `json:"credential"`
}

type SignInResponse struct {
	Success bool     `json:"success"`
	Reason  string   `json:"reason,omitempty"`
	Account *Account `json:"account,omitempty"`
}

type SignOutRequest struct{}

type SignOutResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type AddRoleRequest struct {
	AccountID  string `json:"account_id"`
	Role       string `json:"role"`
	BusinessID string `json:"business_id,omitempty"`
}

type AddRoleResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}
