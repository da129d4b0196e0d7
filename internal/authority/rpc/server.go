package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"scheduling-platform/identity/internal/authority"
	"scheduling-platform/identity/internal/platform/rpcjson"
	"scheduling-platform/identity/internal/session/domain"
)

// Server adapts an authority.Client implementation (e.g. devauthority) to the gRPC API.
// *authority.Failure becomes success=false with its reason; any other error becomes codes.Internal.
type Server struct {
	backend authority.Client
}

// NewServer returns a Server for backend.
func NewServer(backend authority.Client) *Server {
	return &Server{backend: backend}
}

// failureReason returns the reason of a *authority.Failure, or a gRPC error for anything else.
func failureReason(err error) (string, error) {
	var f *authority.Failure
	if errors.As(err, &f) {
		return f.Reason, nil
	}
	if _, ok := status.FromError(err); ok {
		return "", err
	}
	return "", status.Error(codes.Internal, "internal error")
}

func (s *Server) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	if req.AccountID == "" || req.DeviceID == "" {
		return &CreateResponse{Reason: authority.ReasonInvalidRequest}, nil
	}
	creds, err := s.backend.Create(ctx, authority.CreateRequest{
		AccountID:  req.AccountID,
		ActiveRole: req.ActiveRole,
		Client:     domain.ClientContext{DeviceID: req.DeviceID, Descriptor: req.ClientDescriptor},
	})
	if err != nil {
		reason, gerr := failureReason(err)
		if gerr != nil {
			return nil, gerr
		}
		return &CreateResponse{Reason: reason}, nil
	}
	return &CreateResponse{
		Success:      true,
		SessionID:    creds.SessionID,
		RefreshToken: creds.RefreshToken,
		AccessToken:  creds.AccessToken,
		ExpiresAt:    rpcjson.NewTimestamp(creds.ExpiresAt),
	}, nil
}

func (s *Server) Refresh(ctx context.Context, req *RefreshRequest) (*RefreshResponse, error) {
	if req.SessionID == "" || req.RefreshToken == "" {
		return &RefreshResponse{Reason: authority.ReasonInvalidRequest}, nil
	}
	grant, err := s.backend.Refresh(ctx, req.SessionID, req.RefreshToken)
	if err != nil {
		reason, gerr := failureReason(err)
		if gerr != nil {
			return nil, gerr
		}
		return &RefreshResponse{Reason: reason}, nil
	}
	return &RefreshResponse{Success: true, AccessToken: grant.AccessToken, ExpiresAt: rpcjson.NewTimestamp(grant.ExpiresAt)}, nil
}

func (s *Server) RevokeOne(ctx context.Context, req *RevokeOneRequest) (*RevokeOneResponse, error) {
	if err := s.backend.RevokeOne(ctx, req.SessionID); err != nil {
		reason, gerr := failureReason(err)
		if gerr != nil {
			return nil, gerr
		}
		return &RevokeOneResponse{Reason: reason}, nil
	}
	return &RevokeOneResponse{Success: true}, nil
}

func (s *Server) RevokeAll(ctx context.Context, req *RevokeAllRequest) (*RevokeAllResponse, error) {
	n, err := s.backend.RevokeAll(ctx, req.AccountID, req.ExceptSessionID)
	if err != nil {
		reason, gerr := failureReason(err)
		if gerr != nil {
			return nil, gerr
		}
		return &RevokeAllResponse{Reason: reason}, nil
	}
	return &RevokeAllResponse{Success: true, RevokedCount: int32(n)}, nil
}

func (s *Server) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	items, err := s.backend.List(ctx, req.CurrentSessionID)
	if err != nil {
		reason, gerr := failureReason(err)
		if gerr != nil {
			return nil, gerr
		}
		return &ListResponse{Reason: reason}, nil
	}
	out := make([]*SessionSummary, 0, len(items))
	for _, it := range items {
		out = append(out, &SessionSummary{
			SessionID:        it.SessionID,
			DeviceID:         it.DeviceID,
			ClientDescriptor: it.ClientDescriptor,
			ActiveRole:       it.ActiveRole,
			CreatedAt:        rpcjson.NewTimestamp(it.CreatedAt),
			LastSeenAt:       rpcjson.OptionalTimestamp(it.LastSeenAt),
			ExpiresAt:        rpcjson.NewTimestamp(it.ExpiresAt),
			Current:          it.Current,
		})
	}
	return &ListResponse{Success: true, Sessions: out}, nil
}

func (s *Server) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	v, err := s.backend.Validate(ctx, req.SessionID)
	if err != nil {
		reason, gerr := failureReason(err)
		if gerr != nil {
			return nil, gerr
		}
		return &ValidateResponse{Reason: reason}, nil
	}
	return &ValidateResponse{Success: true, Valid: v.Valid, Reason: v.Reason}, nil
}
