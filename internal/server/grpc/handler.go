package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/passvault/internal/authrpc"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Validate never fails at the RPC level; the verdict is in the response.
func (s *GRPCServer) Validate(ctx context.Context, req *authrpc.ValidateRequest) (*authrpc.ValidateResponse, error) {
	res := s.auth.Validate(ctx, req.Authorization)
	return &authrpc.ValidateResponse{
		Valid:       res.Valid,
		Username:    res.Username,
		PrincipalID: res.PrincipalID,
		Roles:       res.Roles,
		Message:     res.Message,
	}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *authrpc.RefreshRequest) (*authrpc.TokenResponse, error) {

	tokens, err := s.auth.Refresh(ctx, req.RefreshToken)

	if err != nil {
		var refreshErr *services.TokenRefreshError
		if errors.As(err, &refreshErr) {
			return nil, status.Error(codes.PermissionDenied, refreshErr.Error())
		}
		s.logger.Error(ctx, "refresh failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return toTokenResponse(tokens), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *authrpc.LoginRequest) (*authrpc.TokenResponse, error) {

	tokens, err := s.auth.Login(ctx, req.Username, req.Password)

	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		s.logger.Error(ctx, "login failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return toTokenResponse(tokens), nil
}

func toTokenResponse(t *services.TokenResponse) *authrpc.TokenResponse {
	return &authrpc.TokenResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
		Username:     t.Username,
	}
}
