// Package domain holds the multi-role account model: the roles an account holds and the one it
// is currently operating as.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role is one of the kinds of user an account can act as.
type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
	RoleOwner        Role = "owner"
)

var (
	// ErrRoleNotHeld is returned when switching to a role the account does not hold.
	ErrRoleNotHeld = errors.New("identity: role not held by account")
	// ErrUnknownRole is returned for a role outside client, professional, owner.
	ErrUnknownRole = errors.New("identity: unknown role")
	// ErrInvalidProfile is returned by NewProfile for states that break the profile invariants.
	ErrInvalidProfile = errors.New("identity: invalid profile")
	// ErrInvalidCredentials is returned by identity backends for a failed sign-in.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProfessional, RoleOwner:
		return true
	}
	return false
}

// ParseRole parses s case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// ProviderKind identifies how an account authenticated.
type ProviderKind string

const (
	ProviderPassword ProviderKind = "password"
	ProviderGoogle   ProviderKind = "google"
	ProviderApple    ProviderKind = "apple"
)

// ParseProvider parses a federated provider name. Password is not a federated provider.
func ParseProvider(s string) (ProviderKind, error) {
	switch p := ProviderKind(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGoogle, ProviderApple:
		return p, nil
	}
	return "", fmt.Errorf("identity: unknown provider %q", s)
}

// Account is what the identity backend reports after a successful sign-in.
type Account struct {
	ID         string
	Roles      []Role
	ActiveRole Role
}

// Profile is the locally cached view of an account. The active role is always one of the held
// roles and the held set is never empty. A Profile is not safe for concurrent use.
type Profile struct {
	id     string
	roles  []Role
	active Role
}

// NewProfile validates and builds a Profile. Duplicate roles are collapsed.
func NewProfile(id string, roles []Role, active Role) (*Profile, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty account id", ErrInvalidProfile)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: no roles", ErrInvalidProfile)
	}
	p := &Profile{id: id}
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, r)
		}
		if !p.HasRole(r) {
			p.roles = append(p.roles, r)
		}
	}
	if !p.HasRole(active) {
		return nil, fmt.Errorf("%w: active role %q not held", ErrInvalidProfile, active)
	}
	p.active = active
	sort.Slice(p.roles, func(i, j int) bool { return p.roles[i] < p.roles[j] })
	return p, nil
}

// ProfileFromAccount builds a Profile from a sign-in result.
func ProfileFromAccount(a *Account) (*Profile, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: no account", ErrInvalidProfile)
	}
	return NewProfile(a.ID, a.Roles, a.ActiveRole)
}

func (p *Profile) ID() string       { return p.id }
func (p *Profile) ActiveRole() Role { return p.active }

// Roles returns a copy of the held roles, sorted.
func (p *Profile) Roles() []Role {
	out := make([]Role, len(p.roles))
	copy(out, p.roles)
	return out
}

func (p *Profile) HasRole(r Role) bool {
	for _, held := range p.roles {
		if held == r {
			return true
		}
	}
	return false
}

// SwitchActiveRole makes r the active role. The held roles never change.
func (p *Profile) SwitchActiveRole(r Role) error {
	if !p.HasRole(r) {
		return fmt.Errorf("%w: %q", ErrRoleNotHeld, r)
	}
	p.active = r
	return nil
}

// AddRole adds r to the held roles. It never removes a role or changes the active one.
// added is false when r was already held.
func (p *Profile) AddRole(r Role) (added bool, err error) {
	if !r.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, r)
	}
	if p.HasRole(r) {
		return false, nil
	}
	p.roles = append(p.roles, r)
	sort.Slice(p.roles, func(i, j int) bool { return p.roles[i] < p.roles[j] })
	return true, nil
}

// Clone returns an independent copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	return &Profile{id: p.id, roles: p.Roles(), active: p.active}
}

type profileJSON struct {
	ID         string `json:"id"`
	Roles      []Role `json:"roles"`
	ActiveRole Role   `json:"active_role"`
}

func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileJSON{ID: p.id, Roles: p.roles, ActiveRole: p.active})
}
