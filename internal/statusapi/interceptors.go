package statusapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// logUnary logs every unary call with its duration and status code.
func logUnary(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug().
			Str("method", info.FullMethod).
			Dur("took", time.Since(start)).
			Str("code", status.Code(err).String()).
			Msg("unary call")
		return resp, err
	}
}

// logStream logs the start and end of every streaming call.
func logStream(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		log.Debug().Str("method", info.FullMethod).Msg("stream opened")
		err := handler(srv, ss)
		log.Debug().
			Str("method", info.FullMethod).
			Dur("took", time.Since(start)).
			Str("code", status.Code(err).String()).
			Msg("stream closed")
		return err
	}
}
