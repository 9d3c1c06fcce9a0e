package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	platformgrpc "github.com/andysmith26/forge/internal/platform/grpc"
	"github.com/andysmith26/forge/internal/platform/timeouts"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// HealthService is the health-check name reported by the forge server.
const HealthService = "forge.v1.ForgeService"

// Server hosts the forge process.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	env        *Environment
}

// New creates a server listening on port. The server owns env and closes
// it when Serve returns.
func New(port int, env *Environment) (*Server, error) {
	if env == nil {
		return nil, errors.New("environment is required")
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	grpcServer, healthServer := platformgrpc.NewServer(env.Logger, []string{HealthService})
	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		env:        env,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run opens an environment and serves until the context ends.
func Run(ctx context.Context, port int, cfg Config) error {
	env, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	server, err := New(port, env)
	if err != nil {
		_ = env.Close()
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until the server stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeEnvironment()

	s.env.Logger.Info("forge server listening", zap.String("addr", s.Addr()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.stop()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

// stop drains in-flight calls for up to timeouts.Shutdown, then closes
// whatever is left.
func (s *Server) stop() {
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeouts.Shutdown):
		s.env.Logger.Warn("graceful stop timed out", zap.Duration("timeout", timeouts.Shutdown))
		s.grpcServer.Stop()
		<-stopped
	}
}

func (s *Server) closeEnvironment() {
	if err := s.env.Close(); err != nil {
		s.env.Logger.Warn("close environment", zap.Error(err))
	}
}
