package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/passvault/internal/authrpc"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeAuth struct {
	loginErr   error
	refreshErr error
	gotHeader  string
}

func (f *fakeAuth) Validate(_ context.Context, header string) services.ValidationResult {
	f.gotHeader = header
	if header == "Bearer good" {
		return services.ValidationResult{Valid: true, Username: "alice", PrincipalID: "u1", Roles: []string{"ROLE_USER"}}
	}
	return services.ValidationResult{Message: services.MessageTokenInvalid}
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*services.TokenResponse, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenResponse{AccessToken: "acc", RefreshToken: token, TokenType: "Bearer", ExpiresIn: 900, Username: "alice"}, nil
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (*services.TokenResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.TokenResponse{AccessToken: "acc", RefreshToken: "ref", TokenType: "Bearer", ExpiresIn: 900, Username: username}, nil
}

func start(t *testing.T, auth AuthService) authrpc.AuthServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewGRPCServer("bufnet", logging.Nop{}, auth).Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop within timeout after context cancel")
		}
	})
	return authrpc.NewAuthServiceClient(conn)
}

func TestValidate(t *testing.T) {
	client := start(t, &fakeAuth{})

	res, err := client.Validate(context.Background(), &authrpc.ValidateRequest{Authorization: "Bearer good"})
	require.NoError(t, err)
	assert.Equal(t, &authrpc.ValidateResponse{Valid: true, Username: "alice", PrincipalID: "u1", Roles: []string{"ROLE_USER"}}, res)

	res, err = client.Validate(context.Background(), &authrpc.ValidateRequest{Authorization: "Bearer bad"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, services.MessageTokenInvalid, res.Message)
}

func TestValidate_HeaderFromMetadata(t *testing.T) {
	auth := &fakeAuth{}
	client := start(t, auth)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer good")
	res, err := client.Validate(ctx, &authrpc.ValidateRequest{})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "Bearer good", auth.gotHeader)
}

func TestLogin(t *testing.T) {
	client := start(t, &fakeAuth{})
	res, err := client.Login(context.Background(), &authrpc.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, int64(900), res.ExpiresIn)

	client = start(t, &fakeAuth{loginErr: common.ErrorUnauthorized})
	_, err = client.Login(context.Background(), &authrpc.LoginRequest{Username: "alice", Password: "bad"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	client = start(t, &fakeAuth{loginErr: errors.New("db down")})
	_, err = client.Login(context.Background(), &authrpc.LoginRequest{Username: "alice", Password: "pw"})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, err.Error(), "db down")
}

func TestRefresh(t *testing.T) {
	client := start(t, &fakeAuth{})
	res, err := client.Refresh(context.Background(), &authrpc.RefreshRequest{RefreshToken: "ref"})
	require.NoError(t, err)
	assert.Equal(t, "ref", res.RefreshToken)

	client = start(t, &fakeAuth{refreshErr: &services.TokenRefreshError{Token: "ref", Reason: common.ErrTokenExpired}})
	_, err = client.Refresh(context.Background(), &authrpc.RefreshRequest{RefreshToken: "ref"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeAuth{})
	assert.Error(t, srv.Run(context.Background()))
}
