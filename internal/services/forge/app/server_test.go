package app

import (
	"context"
	"net"
	"testing"
	"time"

	platformgrpc "github.com/andysmith26/forge/internal/platform/grpc"
	"github.com/andysmith26/forge/internal/platform/timeouts"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestNewRequiresEnvironment(t *testing.T) {
	if _, err := New(0, nil); err == nil {
		t.Fatal("expected error for nil environment")
	}
}

func TestServeReportsHealthAndStops(t *testing.T) {
	env, err := Open(context.Background(), Config{Backend: BackendMemory, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("open environment: %v", err)
	}
	server, err := New(0, env)
	if err != nil {
		_ = env.Close()
		t.Fatalf("new server: %v", err)
	}
	_, port, err := net.SplitHostPort(server.Addr())
	if err != nil {
		t.Fatalf("split addr %q: %v", server.Addr(), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	conn, err := grpc.NewClient(net.JoinHostPort("127.0.0.1", port), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitCtx, waitCancel := context.WithTimeout(ctx, timeouts.HealthWait)
	defer waitCancel()
	if err := platformgrpc.WaitForHealth(waitCtx, conn, HealthService, zap.NewNop()); err != nil {
		t.Fatalf("wait for health: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * timeouts.Shutdown):
		t.Fatal("server did not stop")
	}
}
