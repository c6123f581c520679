package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/repositories/metadata"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
	"github.com/goccy/go-json"
)

// CursorStore keeps the high-water mark of ingested origin ids. The stored
// value only ever grows.
type CursorStore struct {
	db          *sql.DB
	ro          *sql.DB
	repomanager repomanager.RepositoryManager
	minID       int64
	now         func() time.Time
}

// NewCursorStore returns a store whose effective cursor never drops below
// minID-1, so ids under minID are never requested.
func NewCursorStore(db, ro *sql.DB, repomanager repomanager.RepositoryManager, minID int64) *CursorStore {
	if ro == nil {
		ro = db
	}
	return &CursorStore{db: db, ro: ro, repomanager: repomanager, minID: minID, now: time.Now}
}

func (s *CursorStore) MinID() int64 { return s.minID }

// Stored returns the persisted cursor, 0 when none was ever written.
func (s *CursorStore) Stored(ctx context.Context) (int64, error) {
	return readCursor(ctx, s.repomanager.Metadata(s.ro))
}

// Effective returns max(stored, minID-1).
func (s *CursorStore) Effective(ctx context.Context) (int64, error) {
	stored, err := s.Stored(ctx)
	if err != nil {
		return 0, err
	}
	return max(stored, s.minID-1), nil
}

// Advance sets the cursor to id when id is greater than the stored value.
// Compare and write happen in one transaction; it reports whether the
// cursor moved.
func (s *CursorStore) Advance(ctx context.Context, id int64) (bool, error) {
	moved := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Metadata(tx)
		stored, err := readCursor(ctx, repo)
		if err != nil {
			return err
		}
		if id <= stored {
			return nil
		}
		value, err := json.Marshal(models.Cursor{MaxIDSeen: id})
		if err != nil {
			return err
		}
		if err := repo.Set(ctx, common.CursorKey, value, s.now().UnixMilli()); err != nil {
			return err
		}
		moved = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to advance cursor to %d: %w", id, err)
	}
	return moved, nil
}

func readCursor(ctx context.Context, repo metadata.Repository) (int64, error) {
	raw, err := repo.Get(ctx, common.CursorKey)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	var c models.Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, fmt.Errorf("corrupt cursor value %q: %w", raw, err)
	}
	return c.MaxIDSeen, nil
}
