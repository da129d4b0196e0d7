package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "identity.accounts.v1.IdentityBackend"

const (
	MethodSignInWithPassword = "/" + ServiceName + "/SignInWithPassword"
	MethodSignInWithProvider = "/" + ServiceName + "/SignInWithProvider"
	MethodSignOut            = "/" + ServiceName + "/SignOut"
	MethodAddRole            = "/" + ServiceName + "/AddRole"
)

// PublicMethods need no bearer token.
var PublicMethods = map[string]bool{
	MethodSignInWithPassword: true,
	MethodSignInWithProvider: true,
	MethodSignOut:            true,
}

type IdentityBackendServer interface {
	SignInWithPassword(context.Context, *SignInWithPasswordRequest) (*SignInResponse, error)
	SignInWithProvider(context.Context, *SignInWithProviderRequest) (*SignInResponse, error)
	SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error)
	AddRole(context.Context, *AddRoleRequest) (*AddRoleResponse, error)
}

func RegisterIdentityBackendServer(s grpc.ServiceRegistrar, srv IdentityBackendServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unary[Req any, Resp any](fullMethod string, call func(IdentityBackendServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(IdentityBackendServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityBackendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignInWithPassword", Handler: unary(MethodSignInWithPassword, IdentityBackendServer.SignInWithPassword)},
		{MethodName: "SignInWithProvider", Handler: unary(MethodSignInWithProvider, IdentityBackendServer.SignInWithProvider)},
		{MethodName: "SignOut", Handler: unary(MethodSignOut, IdentityBackendServer.SignOut)},
		{MethodName: "AddRole", Handler: unary(MethodAddRole, IdentityBackendServer.AddRole)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity/accounts/v1/accounts.proto",
}
