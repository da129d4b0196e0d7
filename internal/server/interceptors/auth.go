package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"scheduling-platform/identity/internal/security"
)

const bearerPrefix = "bearer "

// SessionValidator reports whether the session behind an access token is still live.
// A revoked session must be rejected even while its access token has not expired.
type SessionValidator func(ctx context.Context, sessionID string) (bool, error)

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata and sets account_id, session_id and active_role in context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. SessionAuthority Create, Refresh; IdentityService Login). When validator is non-nil,
// tokens whose session is no longer live are rejected.
func AuthUnary(tokens *security.TokenProvider, publicMethods map[string]bool, validator SessionValidator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		id, err := tokens.ValidateAccess(token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		if validator != nil && !public {
			live, err := validator(ctx, id.SessionID)
			if err != nil || !live {
				return nil, status.Error(codes.Unauthenticated, "session is no longer valid")
			}
		}

		ctx = WithIdentity(ctx, id.AccountID, id.SessionID, id.ActiveRole)
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
