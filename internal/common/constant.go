package common

const (
	// AuthorizationHeaderName carries "Bearer <token>" on HTTP requests and,
	// lower-cased, in gRPC metadata.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix is the only scheme accepted for access tokens.
	BearerPrefix = "Bearer "

	// TokenType is reported to clients in the token envelope.
	TokenType = "Bearer"

	// DefaultRole is assigned to every newly registered principal.
	DefaultRole = "ROLE_USER"
)
