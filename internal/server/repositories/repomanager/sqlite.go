// Package repomanager provides the SQLite RepositoryManager, wiring
// repository constructors and the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/migrations"
	"github.com/dmitrijs2005/casely/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/casely/internal/server/repositories/labels"
	"github.com/dmitrijs2005/casely/internal/server/repositories/metadata"
	"github.com/pressly/goose/v3"
)

// SQLiteRepositoryManager vends SQLite-backed repository implementations
// and exposes a schema migration hook.
type SQLiteRepositoryManager struct{}

// Contracts returns a contracts.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Contracts(db dbx.DBTX) contracts.Repository {
	return contracts.NewSQLiteRepository(db)
}

// Labels returns a labels.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Labels(db dbx.DBTX) labels.Repository {
	return labels.NewSQLiteRepository(db)
}

// Metadata returns a metadata.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided (read-write) database handle.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewSQLiteRepositoryManager constructs a SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
