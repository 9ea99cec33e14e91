package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/inkwell/internal/dbx"
	"github.com/dmitrijs2005/inkwell/internal/server/repositories/users"
)

// RepositoryManager vends repositories for one SQL dialect and migrates
// its schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// New returns the manager matching dialect.
func New(dialect dbx.Dialect) RepositoryManager {
	if dialect == dbx.SQLite {
		return &SQLiteRepositoryManager{}
	}
	return &PostgresRepositoryManager{}
}
