package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "identity.authority.v1.SessionAuthority"

// Full method names, used by interceptors to mark public methods.
const (
	MethodCreate    = "/" + ServiceName + "/Create"
	MethodRefresh   = "/" + ServiceName + "/Refresh"
	MethodRevokeOne = "/" + ServiceName + "/RevokeOne"
	MethodRevokeAll = "/" + ServiceName + "/RevokeAll"
	MethodList      = "/" + ServiceName + "/List"
	MethodValidate  = "/" + ServiceName + "/Validate"
)

// PublicMethods need no bearer access token. Refresh and Validate authenticate by session id and
// refresh token; Create and RevokeOne rely on the authority trusting its callers, which only the
// development authority does.
var PublicMethods = map[string]bool{
	MethodCreate:    true,
	MethodRefresh:   true,
	MethodRevokeOne: true,
	MethodValidate:  true,
}

// SessionAuthorityServer is the server API of the session authority.
type SessionAuthorityServer interface {
	Create(context.Context, *CreateRequest) (*CreateResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	RevokeOne(context.Context, *RevokeOneRequest) (*RevokeOneResponse, error)
	RevokeAll(context.Context, *RevokeAllRequest) (*RevokeAllResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Validate(context.Context, *ValidateRequest) (*ValidateResponse, error)
}

// RegisterSessionAuthorityServer registers srv on s.
func RegisterSessionAuthorityServer(s grpc.ServiceRegistrar, srv SessionAuthorityServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unary builds a grpc.MethodHandler for one method, running interceptors like generated code does.
func unary[Req any, Resp any](fullMethod string, call func(SessionAuthorityServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(SessionAuthorityServer)
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
	HandlerType: (*SessionAuthorityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: unary(MethodCreate, SessionAuthorityServer.Create)},
		{MethodName: "Refresh", Handler: unary(MethodRefresh, SessionAuthorityServer.Refresh)},
		{MethodName: "RevokeOne", Handler: unary(MethodRevokeOne, SessionAuthorityServer.RevokeOne)},
		{MethodName: "RevokeAll", Handler: unary(MethodRevokeAll, SessionAuthorityServer.RevokeAll)},
		{MethodName: "List", Handler: unary(MethodList, SessionAuthorityServer.List)},
		{MethodName: "Validate", Handler: unary(MethodValidate, SessionAuthorityServer.Validate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity/authority/v1/authority.proto",
}
