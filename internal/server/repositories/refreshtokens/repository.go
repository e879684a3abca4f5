// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores token. A clash with the one-active-token-per-user or the
	// token-value uniqueness constraint yields common.ErrorAlreadyExists.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a refresh token by its opaque token string and returns its metadata.
	// Implementations should return a not-found error when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a non-existent
	// token should not be considered an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every refresh token owned by userID.
	DeleteByUser(ctx context.Context, userID string) error

	// RevokeByUser marks the user's active token revoked and reports how many
	// rows changed.
	RevokeByUser(ctx context.Context, userID string) (int64, error)
}
