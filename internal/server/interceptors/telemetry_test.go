package interceptors

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"scheduling-platform/identity/internal/telemetry"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []*telemetry.Event
	done   chan struct{}
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{done: make(chan struct{}, 8)}
}

func (r *recordingEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingEmitter) wait(t *testing.T) *telemetry.Event {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emit")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func TestTelemetryUnary_EmitsEvent(t *testing.T) {
	em := newRecordingEmitter()
	interceptor := TelemetryUnary(em, zap.NewNop(), nil)

	ctx := WithIdentity(context.Background(), "acct-1", "session-1", "client")
	ctx = metadata.NewIncomingContext(ctx, metadata.New(map[string]string{"x-real-ip": "10.0.0.7"}))
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "nope")
	}
	_, err := interceptor(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}, handler)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("err = %v, want NotFound passthrough", err)
	}

	event := em.wait(t)
	if event.EventType != telemetry.EventRPC || event.Source != "grpc_interceptor" {
		t.Errorf("event type/source = %q/%q", event.EventType, event.Source)
	}
	if event.AccountID != "acct-1" || event.SessionID != "session-1" {
		t.Errorf("event ids = %q/%q", event.AccountID, event.SessionID)
	}
	var meta grpcRequestMetadata
	if err := json.Unmarshal(event.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.FullMethod != "/svc/Method" || meta.StatusCode != "NotFound" || meta.ClientIP != "10.0.0.7" {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestTelemetryUnary_SkipAndNilEmitter(t *testing.T) {
	em := newRecordingEmitter()
	skip := TelemetryUnary(em, zap.NewNop(), map[string]bool{"/svc/Skip": true})
	if _, err := skip(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/svc/Skip"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	nilEmitter := TelemetryUnary(nil, nil, nil)
	resp, err := nilEmitter(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/svc/Other"}, okHandler)
	if err != nil || resp != "success" {
		t.Fatalf("resp, err = %v, %v", resp, err)
	}
	select {
	case <-em.done:
		t.Error("skipped method should not emit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTelemetryUnary_HandlerErrorPassthrough(t *testing.T) {
	interceptor := TelemetryUnary(nil, nil, nil)
	want := errors.New("boom")
	_, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, want })
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestClientIP(t *testing.T) {
	testCases := []struct {
		name string
		md   map[string]string
		want string
	}{
		{"x-forwarded-for", map[string]string{"x-forwarded-for": "192.168.1.1"}, "192.168.1.1"},
		{"x-forwarded-for with comma", map[string]string{"x-forwarded-for": "192.168.1.1, 10.0.0.1"}, "192.168.1.1"},
		{"x-real-ip", map[string]string{"x-real-ip": "192.168.1.2"}, "192.168.1.2"},
		{"precedence", map[string]string{"x-forwarded-for": "192.168.1.1", "x-real-ip": "192.168.1.2"}, "192.168.1.1"},
		{"whitespace", map[string]string{"x-forwarded-for": "  192.168.1.1  "}, "192.168.1.1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), metadata.New(tc.md))
			if ip := ClientIP(ctx); ip != tc.want {
				t.Errorf("ip = %q, want %q", ip, tc.want)
			}
		})
	}
}

func TestClientIP_PeerAddress(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.3"), Port: 12345},
	})
	if ip := ClientIP(ctx); ip != "192.168.1.3" {
		t.Errorf("ip = %q, want %q", ip, "192.168.1.3")
	}
}

func TestClientIP_Unknown(t *testing.T) {
	if ip := ClientIP(context.Background()); ip != "unknown" {
		t.Errorf("ip = %q, want %q", ip, "unknown")
	}
}
