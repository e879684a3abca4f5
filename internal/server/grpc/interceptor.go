package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/passvault/internal/authrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const authorizationMetadataKey = "authorization"

// authorizationInterceptor lets callers pass the Authorization header as
// metadata instead of in the Validate request body.
func (s *GRPCServer) authorizationInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if info.FullMethod == authrpc.ValidateMethod {
		if in, ok := req.(*authrpc.ValidateRequest); ok && in.Authorization == "" {
			if md, ok := metadata.FromIncomingContext(ctx); ok {
				if values := md.Get(authorizationMetadataKey); len(values) > 0 {
					in.Authorization = values[0]
				}
			}
		}
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
