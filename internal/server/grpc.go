package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"scheduling-platform/identity/internal/authority"
	authorityrpc "scheduling-platform/identity/internal/authority/rpc"
	identityrpc "scheduling-platform/identity/internal/identity/rpc"
	identityservice "scheduling-platform/identity/internal/identity/service"
	"scheduling-platform/identity/internal/security"
	"scheduling-platform/identity/internal/server/interceptors"
	"scheduling-platform/identity/internal/telemetry"
)

// Deps holds the backends served by the authority process.
type Deps struct {
	// Authority backs SessionAuthority. If nil, the service is not registered.
	Authority authority.Client
	// Identity backs IdentityBackend. If nil, the service is not registered.
	Identity identityservice.IdentityBackend
	Logger   *zap.Logger
}

// GRPCOptions configures NewGRPCServer.
type GRPCOptions struct {
	Tokens *security.TokenProvider
	// Validator rejects bearer tokens of revoked sessions on non-public methods. Optional.
	Validator interceptors.SessionValidator
	// Emitter receives one grpc_request event per RPC. Optional.
	Emitter telemetry.EventEmitter
	Logger  *zap.Logger
}

// PublicMethods is every method that does not need a bearer token.
func PublicMethods() map[string]bool {
	public := make(map[string]bool, len(authorityrpc.PublicMethods)+len(identityrpc.PublicMethods))
	for m := range authorityrpc.PublicMethods {
		public[m] = true
	}
	for m := range identityrpc.PublicMethods {
		public[m] = true
	}
	return public
}

// NewGRPCServer builds the authority process's gRPC server: OTel stats, telemetry events, then bearer
// authentication. Validate is polled by agents and is not emitted as an event.
func NewGRPCServer(opts GRPCOptions) *grpc.Server {
	skip := map[string]bool{authorityrpc.MethodValidate: true}
	return grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.TelemetryUnary(opts.Emitter, opts.Logger, skip),
			interceptors.AuthUnary(opts.Tokens, PublicMethods(), opts.Validator),
		),
	)
}

// RegisterServices registers the session authority and identity backend services.
//
// Service → implementation:
//   - identity.authority.v1.SessionAuthority → internal/authority/rpc over deps.Authority
//   - identity.accounts.v1.IdentityBackend   → internal/identity/rpc over deps.Identity
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Authority != nil {
		authorityrpc.RegisterSessionAuthorityServer(s, authorityrpc.NewServer(deps.Authority))
	}
	if deps.Identity != nil {
		identityrpc.RegisterIdentityBackendServer(s, identityrpc.NewServer(deps.Identity, deps.Logger))
	}
}
