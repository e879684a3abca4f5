// Package entries declares the server-side repository contract for vault
// entries. The repository stores whatever it is given; sealing happens above it.
package entries

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

type Repository interface {
	// Create inserts entry and fills its timestamps.
	Create(ctx context.Context, entry *models.Entry) error

	// Update replaces the mutable fields of an entry owned by entry.UserID.
	// A missing or foreign entry yields common.ErrorNotFound.
	Update(ctx context.Context, entry *models.Entry) error

	// Get returns one entry of userID or common.ErrorNotFound.
	Get(ctx context.Context, userID, id string) (*models.Entry, error)

	// List returns every entry of userID ordered by title.
	List(ctx context.Context, userID string) ([]*models.Entry, error)

	// Delete removes an entry of userID. A missing entry yields common.ErrorNotFound.
	Delete(ctx context.Context, userID, id string) error
}
