package labels

import (
	"context"

	"github.com/dmitrijs2005/casely/internal/server/models"
)

type Repository interface {
	ListSince(ctx context.Context, since int64) ([]*models.Label, error)
	MaxUpdatedAt(ctx context.Context) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Upsert(ctx context.Context, l *models.Label) error
	InsertIfAbsent(ctx context.Context, l *models.Label) (bool, error)
	SoftDelete(ctx context.Context, id int64, ts int64) error
}
