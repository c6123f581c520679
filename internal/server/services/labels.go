package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
)

// DefaultLabels are created on first start; existing rows are left alone.
var DefaultLabels = []models.Label{
	{ID: 1, Name: "주의", OrderRank: 1},
	{ID: 2, Name: "검토완료", OrderRank: 2},
	{ID: 3, Name: "작업완료", OrderRank: 3},
}

type LabelService struct {
	db          *sql.DB
	ro          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewLabelService(db, ro *sql.DB, repomanager repomanager.RepositoryManager) *LabelService {
	if ro == nil {
		ro = db
	}
	return &LabelService{db: db, ro: ro, repomanager: repomanager, now: time.Now}
}

// SeedDefaults inserts DefaultLabels that do not exist yet and returns how
// many were created.
func (s *LabelService) SeedDefaults(ctx context.Context) (int, error) {
	ts := s.now().UnixMilli()
	created := 0
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Labels(tx)
		for _, l := range DefaultLabels {
			l.UpdatedAt = ts
			ok, err := repo.InsertIfAbsent(ctx, &l)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	return created, err
}

// ListSince returns labels changed after since, deleted ones included, and
// the newest updated_at among them (never below since).
func (s *LabelService) ListSince(ctx context.Context, since int64) ([]*models.Label, int64, error) {
	items, err := s.repomanager.Labels(s.ro).ListSince(ctx, since)
	if err != nil {
		return nil, 0, err
	}
	maxTS := since
	for _, l := range items {
		maxTS = max(maxTS, l.UpdatedAt)
	}
	return items, maxTS, nil
}

func (s *LabelService) MaxUpdatedAt(ctx context.Context) (int64, error) {
	return s.repomanager.Labels(s.ro).MaxUpdatedAt(ctx)
}

// Upsert creates or redefines label l and returns its new updated_at.
func (s *LabelService) Upsert(ctx context.Context, l models.Label) (int64, error) {
	l.UpdatedAt = s.now().UnixMilli()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Labels(tx).Upsert(ctx, &l)
	})
	return l.UpdatedAt, err
}

func (s *LabelService) Delete(ctx context.Context, id int64) (int64, error) {
	ts := s.now().UnixMilli()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Labels(tx).SoftDelete(ctx, id, ts)
	})
	return ts, err
}
