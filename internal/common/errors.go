// Package common defines shared constants and sentinel errors used across
// the auth server and the gateway. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Access token errors.
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")

	// Refresh credential lifecycle errors.
	ErrTokenRevoked  = errors.New("token revoked")
	ErrTokenNotFound = errors.New("token not found")

	// Field encryption errors.
	ErrEncryption = errors.New("encryption error")
	ErrDecryption = errors.New("decryption error")

	// Gateway to auth-core connectivity.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
