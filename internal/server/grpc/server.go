// Package grpc serves the auth service over gRPC with the authrpc JSON codec.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/passvault/internal/authrpc"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"google.golang.org/grpc"
)

// AuthService is the part of services.AuthService exposed over gRPC.
type AuthService interface {
	Validate(ctx context.Context, header string) services.ValidationResult
	Refresh(ctx context.Context, refreshToken string) (*services.TokenResponse, error)
	Login(ctx context.Context, username, password string) (*services.TokenResponse, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as AuthService) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authorizationInterceptor))

	authrpc.RegisterAuthServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
