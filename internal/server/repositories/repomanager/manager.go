package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/casely/internal/server/repositories/labels"
	"github.com/dmitrijs2005/casely/internal/server/repositories/metadata"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can
// use the same repos on a plain handle or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Contracts(db dbx.DBTX) contracts.Repository
	Labels(db dbx.DBTX) labels.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}
