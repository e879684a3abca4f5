package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/authrpc"
	"github.com/dmitrijs2005/passvault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const validatePath = "/api/auth/validate"

// Validator asks the auth server whether an Authorization header value
// is acceptable. A non-nil error means the answer could not be obtained
// and always wraps common.ErrUpstreamUnavailable.
type Validator interface {
	Validate(ctx context.Context, authorization string) (*authrpc.ValidateResponse, error)
}

// HTTPValidator calls GET {base}/api/auth/validate.
type HTTPValidator struct {
	endpoint string
	client   *http.Client
}

func NewHTTPValidator(baseURL string, client *http.Client) *HTTPValidator {
	return &HTTPValidator{
		endpoint: strings.TrimRight(baseURL, "/") + validatePath,
		client:   client,
	}
}

func (v *HTTPValidator) Validate(ctx context.Context, authorization string) (*authrpc.ValidateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	req.Header.Set(common.AuthorizationHeaderName, authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: validate returned status %d", common.ErrUpstreamUnavailable, resp.StatusCode)
	}

	out := &authrpc.ValidateResponse{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return nil, fmt.Errorf("%w: decode validate response: %v", common.ErrUpstreamUnavailable, err)
	}
	return out, nil
}

// GRPCValidator calls AuthService/Validate.
type GRPCValidator struct {
	client authrpc.AuthServiceClient
}

func NewGRPCValidator(client authrpc.AuthServiceClient) *GRPCValidator {
	return &GRPCValidator{client: client}
}

func (v *GRPCValidator) Validate(ctx context.Context, authorization string) (*authrpc.ValidateResponse, error) {
	out, err := v.client.Validate(ctx, &authrpc.ValidateRequest{Authorization: authorization})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	return out, nil
}

// DialAuthService creates a lazy client connection to the auth server's
// gRPC endpoint. No I/O happens until the first call.
func DialAuthService(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return grpc.NewClient(addr, opts...)
}
