package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/pallet-tracker/internal/common"
)

const requestIDHeader = "x-request-id"

// UnaryLoggingInterceptor tags each call with a request ID (taken from the
// x-request-id header when present) and logs its outcome.
func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(requestIDHeader); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, requestID := common.EnsureRequestID(ctx)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if err != nil {
			logger.Warn("rpc failed", "method", info.FullMethod, "request_id", requestID, "code", code.String(), "took", time.Since(start), "error", err)
		} else {
			logger.Debug("rpc ok", "method", info.FullMethod, "request_id", requestID, "took", time.Since(start))
		}
		return resp, err
	}
}
