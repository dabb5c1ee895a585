// Package grpc exposes the relay readiness over the standard gRPC health protocol.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service reported next to the overall "" entry.
const ServiceName = "chat.relay.v1.Relay"

type readiness interface {
	Ready() bool
}

// HealthServer reports NOT_SERVING until the room directory is seeded.
type HealthServer struct {
	log          *slog.Logger
	address      string
	rooms        readiness
	pollInterval time.Duration
	health       *health.Server
}

func NewHealthServer(log *slog.Logger, address string, rooms readiness, pollInterval time.Duration) *HealthServer {
	return &HealthServer{
		log:          log,
		address:      address,
		rooms:        rooms,
		pollInterval: pollInterval,
		health:       health.NewServer(),
	}
}

func (h *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.address, err)
	}
	return h.Serve(ctx, listener)
}

// Serve answers health checks on listener until ctx is done.
func (h *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	grpcServer := gogrpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, h.health)
	reflection.Register(grpcServer)
	h.refresh()

	errChan := make(chan error, 1)
	go func() {
		h.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		if err := grpcServer.Serve(listener); err != nil && err != gogrpc.ErrServerStopped {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			grpcServer.GracefulStop()
			return nil
		case err := <-errChan:
			grpcServer.Stop()
			return err
		case <-ticker.C:
			h.refresh()
		}
	}
}

func (h *HealthServer) refresh() {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if h.rooms.Ready() {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// WaitForHealth blocks until the health check reports SERVING or the context ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string) error {
	healthClient := grpc_health_v1.NewHealthClient(conn)
	backoff := 100 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, time.Second)
	}
}
