package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/entries"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so the same code
// runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Entries(db dbx.DBTX) entries.Repository
}
