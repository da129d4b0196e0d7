package rpc

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"scheduling-platform/identity/internal/identity/devbackend"
	"scheduling-platform/identity/internal/identity/domain"
	"scheduling-platform/identity/internal/identity/service"
	"scheduling-platform/identity/internal/server/interceptors"
)

// Failure reasons carried in responses.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonInvalidRequest     = "invalid_request"
	ReasonUnknownRole        = "unknown_role"
	ReasonBusinessRequired   = "business_id_required"
	ReasonAccountNotFound    = "account_not_found"
	ReasonAlreadyRegistered  = "email_already_registered"
)

// Server adapts an identity backend to the gRPC API. Known backend errors become success=false
// with a reason; anything else becomes codes.Internal.
type Server struct {
	backend service.IdentityBackend
	logger  *zap.Logger
}

func NewServer(backend service.IdentityBackend, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{backend: backend, logger: logger}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return ReasonInvalidCredentials
	case errors.Is(err, domain.ErrUnknownRole):
		return ReasonUnknownRole
	case errors.Is(err, devbackend.ErrBusinessRequired):
		return ReasonBusinessRequired
	case errors.Is(err, devbackend.ErrAccountNotFound):
		return ReasonAccountNotFound
	case errors.Is(err, devbackend.ErrEmailAlreadyRegistered):
		return ReasonAlreadyRegistered
	}
	return ""
}

func (s *Server) internal(method string, err error) error {
	s.logger.Error("identity backend call failed", zap.String("method", method), zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func toAccount(a *domain.Account) *Account {
	out := &Account{ID: a.ID, ActiveRole: string(a.ActiveRole), Roles: make([]string, 0, len(a.Roles))}
	for _, r := range a.Roles {
		out.Roles = append(out.Roles, string(r))
	}
	return out
}

func (s *Server) SignInWithPassword(ctx context.Context, req *SignInWithPasswordRequest) (*SignInResponse, error) {
	if req.Email == "" || req.Password == "" {
		return &SignInResponse{Reason: ReasonInvalidRequest}, nil
	}
	acct, err := s.backend.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		if reason := reasonFor(err); reason != "" {
			return &SignInResponse{Reason: reason}, nil
		}
		return nil, s.internal("SignInWithPassword", err)
	}
	return &SignInResponse{Success: true, Account: toAccount(acct)}, nil
}

func (s *Server) SignInWithProvider(ctx context.Context, req *SignInWithProviderRequest) (*SignInResponse, error) {
	provider, err := domain.ParseProvider(req.Provider)
	if err != nil || req.Credential == "" {
		return &SignInResponse{Reason: ReasonInvalidRequest}, nil
	}
	acct, err := s.backend.SignInWithProvider(ctx, provider, req.Credential)
	if err != nil {
		if reason := reasonFor(err); reason != "" {
			return &SignInResponse{Reason: reason}, nil
		}
		return nil, s.internal("SignInWithProvider", err)
	}
	return &SignInResponse{Success: true, Account: toAccount(acct)}, nil
}

func (s *Server) SignOut(ctx context.Context, _ *SignOutRequest) (*SignOutResponse, error) {
	if err := s.backend.SignOut(ctx); err != nil {
		return nil, s.internal("SignOut", err)
	}
	return &SignOutResponse{Success: true}, nil
}

// AddRole only lets an account add roles to itself.
func (s *Server) AddRole(ctx context.Context, req *AddRoleRequest) (*AddRoleResponse, error) {
	if req.AccountID == "" {
		return &AddRoleResponse{Reason: ReasonInvalidRequest}, nil
	}
	if caller, _ := interceptors.GetAccountID(ctx); caller != req.AccountID {
		return nil, status.Error(codes.PermissionDenied, "cannot change roles of another account")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return &AddRoleResponse{Reason: ReasonUnknownRole}, nil
	}
	if err := s.backend.AddRole(ctx, req.AccountID, role, req.BusinessID); err != nil {
		if reason := reasonFor(err); reason != "" {
			return &AddRoleResponse{Reason: reason}, nil
		}
		return nil, s.internal("AddRole", err)
	}
	return &AddRoleResponse{Success: true}, nil
}
