package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"scheduling-platform/identity/internal/authority"
	"scheduling-platform/identity/internal/platform/rpcjson"
	"scheduling-platform/identity/internal/security"
	"scheduling-platform/identity/internal/session/domain"
)

// Client implements authority.Client over a gRPC connection. It does not retry; each call is bounded
// by callTimeout when the caller's context has no earlier deadline.
type Client struct {
	conn        grpc.ClientConnInterface
	callTimeout time.Duration
}

// NewClient returns a Client using conn. callTimeout <= 0 disables the per-call bound.
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

// expiry prefers the explicit expires_at and falls back to the access token's exp claim.
func expiry(ts *rpcjson.Timestamp, accessToken, op string) (time.Time, error) {
	if ts.IsValid() && ts.AsTime().Unix() > 0 {
		return ts.AsTime(), nil
	}
	exp, err := security.AccessTokenExpiry(accessToken)
	if err != nil {
		return time.Time{}, &authority.Failure{Op: op, Reason: "missing_expiry"}
	}
	return exp, nil
}

func (c *Client) Create(ctx context.Context, req authority.CreateRequest) (*authority.Credentials, error) {
	var out CreateResponse
	err := c.invoke(ctx, MethodCreate, &CreateRequest{
		AccountID:        req.AccountID,
		DeviceID:         req.Client.DeviceID,
		ActiveRole:       req.ActiveRole,
		ClientDescriptor: req.Client.Descriptor,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &authority.Failure{Op: "create", Reason: out.Reason}
	}
	exp, err := expiry(out.ExpiresAt, out.AccessToken, "create")
	if err != nil {
		return nil, err
	}
	return &authority.Credentials{
		SessionID:    out.SessionID,
		RefreshToken: out.RefreshToken,
		AccessToken:  out.AccessToken,
		ExpiresAt:    exp,
	}, nil
}

func (c *Client) Refresh(ctx context.Context, sessionID, refreshToken string) (*authority.AccessGrant, error) {
	var out RefreshResponse
	if err := c.invoke(ctx, MethodRefresh, &RefreshRequest{SessionID: sessionID, RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &authority.Failure{Op: "refresh", Reason: out.Reason}
	}
	exp, err := expiry(out.ExpiresAt, out.AccessToken, "refresh")
	if err != nil {
		return nil, err
	}
	return &authority.AccessGrant{AccessToken: out.AccessToken, ExpiresAt: exp}, nil
}

func (c *Client) RevokeOne(ctx context.Context, sessionID string) error {
	var out RevokeOneResponse
	if err := c.invoke(ctx, MethodRevokeOne, &RevokeOneRequest{SessionID: sessionID}, &out); err != nil {
		return err
	}
	if !out.Success {
		return &authority.Failure{Op: "revoke_one", Reason: out.Reason}
	}
	return nil
}

func (c *Client) RevokeAll(ctx context.Context, accountID, exceptSessionID string) (int, error) {
	var out RevokeAllResponse
	if err := c.invoke(ctx, MethodRevokeAll, &RevokeAllRequest{AccountID: accountID, ExceptSessionID: exceptSessionID}, &out); err != nil {
		return 0, err
	}
	if !out.Success {
		return 0, &authority.Failure{Op: "revoke_all", Reason: out.Reason}
	}
	return int(out.RevokedCount), nil
}

func (c *Client) List(ctx context.Context, currentSessionID string) ([]domain.SessionListItem, error) {
	var out ListResponse
	if err := c.invoke(ctx, MethodList, &ListRequest{CurrentSessionID: currentSessionID}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &authority.Failure{Op: "list", Reason: out.Reason}
	}
	items := make([]domain.SessionListItem, 0, len(out.Sessions))
	for _, s := range out.Sessions {
		if s == nil {
			continue
		}
		item := domain.SessionListItem{
			SessionID:        s.SessionID,
			DeviceID:         s.DeviceID,
			ClientDescriptor: s.ClientDescriptor,
			ActiveRole:       s.ActiveRole,
			CreatedAt:        s.CreatedAt.AsTime(),
			ExpiresAt:        s.ExpiresAt.AsTime(),
			Current:          s.Current,
		}
		if s.LastSeenAt != nil {
			t := s.LastSeenAt.AsTime()
			item.LastSeenAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) Validate(ctx context.Context, sessionID string) (*authority.Validation, error) {
	var out ValidateResponse
	if err := c.invoke(ctx, MethodValidate, &ValidateRequest{SessionID: sessionID}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &authority.Failure{Op: "validate", Reason: out.Reason}
	}
	return &authority.Validation{Valid: out.Valid, Reason: out.Reason}, nil
}

var _ authority.Client = (*Client)(nil)
