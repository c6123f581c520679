package contracts

import (
	"context"

	"github.com/dmitrijs2005/casely/internal/server/models"
)

// Repository persists contracts. Sync-owned and user-owned columns are
// written by separate methods; none of them rewrites a whole row.
type Repository interface {
	// sync-owned columns
	GetHashes(ctx context.Context, id int64) (*models.ContractHashes, error)
	Insert(ctx context.Context, c *models.Contract) error
	ReplacePayload(ctx context.Context, c *models.Contract) error
	TouchFetchedAt(ctx context.Context, id int64, ts int64) (bool, error)
	StaleIDs(ctx context.Context, olderThan int64, limit int) ([]int64, error)

	// reads
	Get(ctx context.Context, id int64) (*models.Contract, error)
	ListSince(ctx context.Context, since int64, allowDeleted bool) ([]*models.Contract, error)
	MaxUpdatedAt(ctx context.Context) (int64, error)
	Count(ctx context.Context) (live int64, deleted int64, err error)

	// user-owned columns
	SoftDelete(ctx context.Context, id int64, ts int64) error
	SetNotes(ctx context.Context, id int64, notes *string, ts int64) error
	AddLabel(ctx context.Context, id, labelID int64, ts int64) error
	RemoveLabel(ctx context.Context, id, labelID int64, ts int64) error
}
