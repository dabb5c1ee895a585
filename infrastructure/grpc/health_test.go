package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type rooms struct{ ready atomic.Bool }

func (r *rooms) Ready() bool { return r.ready.Load() }

func startHealthServer(t *testing.T, r *rooms) *gogrpc.ClientConn {
	t.Helper()
	listener := bufconn.Listen(1024 * 1024)
	server := NewHealthServer(slog.Default(), "bufnet", r, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	conn, err := gogrpc.NewClient("passthrough:///bufnet",
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		require.NoError(t, <-done)
	})
	return conn
}

func TestHealthServer_Follows_Directory_Readiness(t *testing.T) {
	req := require.New(t)
	r := &rooms{}
	conn := startHealthServer(t, r)
	client := grpc_health_v1.NewHealthClient(conn)
	ctx := context.Background()

	// Given a directory not seeded yet
	response, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	req.NoError(err)
	req.Equal(grpc_health_v1.HealthCheckResponse_NOT_SERVING, response.GetStatus())

	// When it becomes ready
	r.ready.Store(true)

	// Then the relay is serving
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req.NoError(WaitForHealth(waitCtx, conn, ServiceName))
}

func TestWaitForHealth_Respects_Context(t *testing.T) {
	req := require.New(t)
	conn := startHealthServer(t, &rooms{})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req.Error(WaitForHealth(ctx, conn, ""))
}

func TestHealthServer_Serve_Failure_Can_Be_Restarted(t *testing.T) {
	req := require.New(t)
	r := &rooms{}
	r.ready.Store(true)
	server := NewHealthServer(slog.Default(), "bufnet", r, 10*time.Millisecond)

	// Given a listener that cannot accept
	broken := bufconn.Listen(1024 * 1024)
	req.NoError(broken.Close())

	// Then Serve returns the failure instead of hanging
	done := make(chan error, 1)
	go func() { done <- server.Serve(context.Background(), broken) }()
	select {
	case err := <-done:
		req.Error(err)
	case <-time.After(2 * time.Second):
		req.FailNow("Serve did not return on a closed listener")
	}

	// When the same server is started again, as the supervisor does
	listener := bufconn.Listen(1024 * 1024)
	ctx, cancel := context.WithCancel(context.Background())
	restarted := make(chan error, 1)
	go func() { restarted <- server.Serve(ctx, listener) }()

	conn, err := gogrpc.NewClient("passthrough:///bufnet",
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	req.NoError(err)
	defer func() { _ = conn.Close() }()

	// Then it answers health checks again
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	req.NoError(WaitForHealth(waitCtx, conn, ServiceName))

	cancel()
	req.NoError(<-restarted)
}
