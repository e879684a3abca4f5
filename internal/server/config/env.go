package config

import "github.com/dmitrijs2005/passvault/internal/envx"

// parseEnv overlays PASSVAULT_* variables, loading .env first if present.
func parseEnv(config *Config) {
	envx.Load(".env")

	config.EndpointAddrHTTP = envx.String("PASSVAULT_HTTP_ADDR", config.EndpointAddrHTTP)
	config.EndpointAddrGRPC = envx.String("PASSVAULT_GRPC_ADDR", config.EndpointAddrGRPC)
	config.DatabaseDSN = envx.String("PASSVAULT_DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = envx.String("PASSVAULT_SECRET_KEY", config.SecretKey)
	config.AccessTokenValidityDuration = envx.Duration("PASSVAULT_ACCESS_TOKEN_TTL", config.AccessTokenValidityDuration)
	config.RefreshTokenValidityDuration = envx.Duration("PASSVAULT_REFRESH_TOKEN_TTL", config.RefreshTokenValidityDuration)
	config.EncryptionKey = envx.String("PASSVAULT_ENCRYPTION_KEY", config.EncryptionKey)
	config.LogFormat = envx.String("PASSVAULT_LOG_FORMAT", config.LogFormat)
}
