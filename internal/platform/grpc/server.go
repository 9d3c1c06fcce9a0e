// Package grpc holds shared gRPC server and health helpers.
package grpc

import (
	"context"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// NewServer builds a gRPC server with tracing, coded-error mapping and a
// health service that starts in SERVING state for the given service names.
func NewServer(logger *zap.Logger, services []string, opts ...gogrpc.ServerOption) (*gogrpc.Server, *health.Server) {
	base := []gogrpc.ServerOption{
		gogrpc.StatsHandler(otelgrpc.NewServerHandler()),
		gogrpc.ChainUnaryInterceptor(ErrorInterceptor(logger)),
	}
	server := gogrpc.NewServer(append(base, opts...)...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, name := range services {
		healthServer.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return server, healthServer
}

// ErrorInterceptor converts coded errors returned by handlers into gRPC
// statuses and logs internal failures.
func ErrorInterceptor(logger *zap.Logger) gogrpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok && apperrors.GetCode(err) == apperrors.CodeUnknown {
			return resp, err
		}
		code := apperrors.GetCode(err)
		if code == apperrors.CodeInternal || code == apperrors.CodeUnknown {
			logger.Error("gRPC handler failed", zap.String("method", info.FullMethod), zap.Error(err))
		}
		return resp, apperrors.HandleError(err)
	}
}
