// Package users declares and implements storage of registered principals.
package users

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// Repository is the principal store used by authentication.
type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A duplicate
	// username or email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrorNotFound when no such username exists.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
