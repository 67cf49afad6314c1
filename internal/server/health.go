package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewGRPCServer builds a server with the pallet service and the standard
// health service registered.
func NewGRPCServer(svc PalletService, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor(logger)))
	s := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	RegisterPalletServiceServer(s, svc)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

// WatchStoreHealth polls check every interval and flips the service's
// health status accordingly, until ctx is done.
func WatchStoreHealth(ctx context.Context, hs *health.Server, check func(context.Context) error, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVING
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next := healthpb.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			next = healthpb.HealthCheckResponse_NOT_SERVING
			if last != next {
				logger.Error("store health check failed", "error", err)
			}
		}
		if next != last {
			hs.SetServingStatus(ServiceName, next)
			logger.Info("health status changed", "service", ServiceName, "status", next.String())
			last = next
		}
	}
}
