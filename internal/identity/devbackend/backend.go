// Package devbackend is an in-memory identity backend for local development and tests. It stores
// bcrypt password hashes and maps federated subjects to accounts.
package devbackend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scheduling-platform/identity/internal/identity/domain"
	"scheduling-platform/identity/internal/security"
)

var (
	ErrInvalidCredentials     = domain.ErrInvalidCredentials
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrAccountNotFound        = errors.New("account not found")
	ErrBusinessRequired       = errors.New("owner role requires a business id")
)

type account struct {
	id           string
	email        string
	passwordHash string
	roles        []domain.Role
	activeRole   domain.Role
	// businesses holds the business ids provisioned for the owner role.
	businesses []string
}

func (a *account) snapshot() *domain.Account {
	roles := make([]domain.Role, len(a.roles))
	copy(roles, a.roles)
	return &domain.Account{ID: a.id, Roles: roles, ActiveRole: a.activeRole}
}

func (a *account) hasRole(r domain.Role) bool {
	for _, held := range a.roles {
		if held == r {
			return true
		}
	}
	return false
}

// Backend is safe for concurrent use.
type Backend struct {
	hasher *security.Hasher
	logger *zap.Logger

	mu        sync.RWMutex
	byID      map[string]*account
	byEmail   map[string]*account
	federated map[string]*account
}

func New(hasher *security.Hasher, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		hasher:    hasher,
		logger:    logger,
		byID:      make(map[string]*account),
		byEmail:   make(map[string]*account),
		federated: make(map[string]*account),
	}
}

// Register creates a password account holding roles; the first role is active.
func (b *Backend) Register(ctx context.Context, email, password string, roles ...domain.Role) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleClient}
	}
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, r)
		}
	}
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byEmail[email]; ok {
		return nil, ErrEmailAlreadyRegistered
	}
	a := &account{id: uuid.NewString(), email: email, passwordHash: hash, activeRole: roles[0]}
	for _, r := range roles {
		if !a.hasRole(r) {
			a.roles = append(a.roles, r)
		}
	}
	b.byID[a.id] = a
	b.byEmail[email] = a
	b.logger.Info("account registered", zap.String("account_id", a.id))
	return a.snapshot(), nil
}

// SignInWithPassword checks the password against the stored bcrypt hash. Unknown email and wrong
// password both return ErrInvalidCredentials.
func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	b.mu.RLock()
	a, ok := b.byEmail[email]
	var hash string
	if ok {
		hash = a.passwordHash
	}
	b.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := b.hasher.Compare(hash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return a.snapshot(), nil
}

// SignInWithProvider treats credential as the provider's subject. The first sign-in for a subject
// provisions a client account.
func (b *Backend) SignInWithProvider(ctx context.Context, provider domain.ProviderKind, credential string) (*domain.Account, error) {
	if provider != domain.ProviderGoogle && provider != domain.ProviderApple {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	subject := strings.TrimSpace(credential)
	if subject == "" {
		return nil, ErrInvalidCredentials
	}
	key := string(provider) + ":" + subject

	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.federated[key]; ok {
		return a.snapshot(), nil
	}
	a := &account{id: uuid.NewString(), roles: []domain.Role{domain.RoleClient}, activeRole: domain.RoleClient}
	b.byID[a.id] = a
	b.federated[key] = a
	b.logger.Info("federated account provisioned", zap.String("provider", string(provider)), zap.String("account_id", a.id))
	return a.snapshot(), nil
}

// SignOut has no server-side state to drop.
func (b *Backend) SignOut(ctx context.Context) error {
	return nil
}

// AddRole grants role and provisions its profile record. Owner requires businessID. Granting a
// held role only records an additional business for owners.
func (b *Backend) AddRole(ctx context.Context, accountID string, role domain.Role, businessID string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	businessID = strings.TrimSpace(businessID)
	if role == domain.RoleOwner && businessID == "" {
		return ErrBusinessRequired
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if !a.hasRole(role) {
		a.roles = append(a.roles, role)
	}
	if role == domain.RoleOwner {
		for _, id := range a.businesses {
			if id == businessID {
				return nil
			}
		}
		a.businesses = append(a.businesses, businessID)
	}
	return nil
}

// Account returns the current view of an account.
func (b *Backend) Account(accountID string) (*domain.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.byID[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a.snapshot(), nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
