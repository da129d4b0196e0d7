package rpcjson

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOptions configures Dial.
type DialOptions struct {
	// Timeout bounds the initial connection attempt. Zero skips the wait.
	Timeout time.Duration
	// PerRPC, if set, attaches credentials (e.g. the current access token) to every call.
	PerRPC credentials.PerRPCCredentials
	Logger *zap.Logger
}

// Dial returns a JSON-codec client connection to addr. Transport security is the deployment's concern,
// so the channel itself is plaintext. An unreachable authority at startup is logged, not fatal:
// the agent must still serve local state offline.
func Dial(ctx context.Context, addr string, opts DialOptions) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(Name)),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	if opts.PerRPC != nil {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(opts.PerRPC))
	}
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 && !waitReady(ctx, conn, opts.Timeout) && opts.Logger != nil {
		opts.Logger.Warn("authority not reachable yet; continuing", zap.String("addr", addr))
	}
	return conn, nil
}

func waitReady(ctx context.Context, conn *grpc.ClientConn, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return true
		}
		if !conn.WaitForStateChange(ctx, state) {
			return false
		}
	}
}
