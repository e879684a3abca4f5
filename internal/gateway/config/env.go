package config

import (
	"strings"

	"github.com/dmitrijs2005/passvault/internal/envx"
)

// parseEnv overlays PASSVAULT_GATEWAY_* variables, loading .env first if present.
func parseEnv(config *Config) {
	envx.Load(".env")

	config.EndpointAddr = envx.String("PASSVAULT_GATEWAY_ADDR", config.EndpointAddr)
	config.AuthServiceURL = envx.String("PASSVAULT_GATEWAY_AUTH_URL", config.AuthServiceURL)
	config.AuthTransport = envx.String("PASSVAULT_GATEWAY_AUTH_TRANSPORT", config.AuthTransport)
	config.AuthServiceGRPCAddr = envx.String("PASSVAULT_GATEWAY_AUTH_GRPC_ADDR", config.AuthServiceGRPCAddr)
	config.ValidateTimeout = envx.Duration("PASSVAULT_GATEWAY_VALIDATE_TIMEOUT", config.ValidateTimeout)
	config.OpenEndpoints = envx.List("PASSVAULT_GATEWAY_OPEN_ENDPOINTS", config.OpenEndpoints)
	config.UserIDHeader = envx.String("PASSVAULT_GATEWAY_USER_ID_HEADER", config.UserIDHeader)
	config.UsernameHeader = envx.String("PASSVAULT_GATEWAY_USERNAME_HEADER", config.UsernameHeader)
	config.RolesHeader = envx.String("PASSVAULT_GATEWAY_ROLES_HEADER", config.RolesHeader)
	config.RateLimitRPS = envx.Float("PASSVAULT_GATEWAY_RATE_LIMIT_RPS", config.RateLimitRPS)
	config.RateLimitBurst = envx.Int("PASSVAULT_GATEWAY_RATE_LIMIT_BURST", config.RateLimitBurst)
	config.LogFormat = envx.String("PASSVAULT_GATEWAY_LOG_FORMAT", config.LogFormat)

	if routes := envx.List("PASSVAULT_GATEWAY_ROUTES", nil); routes != nil {
		config.Routes = parseRoutes(routes)
	}
}

// parseRoutes turns "prefix=url" items into a route map. Items without "="
// are skipped.
func parseRoutes(items []string) map[string]string {
	routes := make(map[string]string, len(items))
	for _, item := range items {
		prefix, upstream, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		prefix, upstream = strings.TrimSpace(prefix), strings.TrimSpace(upstream)
		if prefix == "" || upstream == "" {
			continue
		}
		routes[prefix] = upstream
	}
	return routes
}
