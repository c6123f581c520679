package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/cryptox"
	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
)

// ContractService is the change detector and the single entry point for
// every contract read and write. Writes go through db (immediate-lock
// transactions), reads through ro.
type ContractService struct {
	db          *sql.DB
	ro          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewContractService(db, ro *sql.DB, repomanager repomanager.RepositoryManager) *ContractService {
	if ro == nil {
		ro = db
	}
	return &ContractService{db: db, ro: ro, repomanager: repomanager, now: time.Now}
}

// UpsertFetched stores a freshly fetched record and reports what changed.
//
//   - unknown id: insert, source_fetched_at = source_updated_at = fetchedAt
//   - same fingerprints: only source_fetched_at moves
//   - any fingerprint differs: payloads, hashes and both timestamps replaced
//
// Lookup and write share one transaction.
func (s *ContractService) UpsertFetched(ctx context.Context, id int64, detail, chats []byte, fetchedAt int64) (models.UpsertOutcome, error) {
	c := &models.Contract{
		ID:              id,
		DetailJSON:      detail,
		ChatsJSON:       chats,
		DetailHash:      cryptox.Fingerprint(detail),
		ChatsHash:       cryptox.Fingerprint(chats),
		SourceFetchedAt: fetchedAt,
		SourceUpdatedAt: fetchedAt,
	}

	var outcome models.UpsertOutcome

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contracts(tx)

		stored, err := repo.GetHashes(ctx, id)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			outcome = models.OutcomeCreated
			return repo.Insert(ctx, c)
		case err != nil:
			return err
		}

		if stored.DetailHash == c.DetailHash && stored.ChatsHash == c.ChatsHash {
			outcome = models.OutcomeUnchanged
			_, err := repo.TouchFetchedAt(ctx, id, fetchedAt)
			return err
		}

		outcome = models.OutcomeChanged
		return repo.ReplacePayload(ctx, c)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert contract %d: %w", id, err)
	}

	return outcome, nil
}

// StaleIDs lists up to limit live contracts last fetched before olderThan.
func (s *ContractService) StaleIDs(ctx context.Context, olderThan int64, limit int) ([]int64, error) {
	return s.repomanager.Contracts(s.ro).StaleIDs(ctx, olderThan, limit)
}

// TouchFetchedAt moves source_fetched_at without looking at content.
func (s *ContractService) TouchFetchedAt(ctx context.Context, id int64, ts int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repomanager.Contracts(tx).TouchFetchedAt(ctx, id, ts)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorNotFound
		}
		return nil
	})
}

func (s *ContractService) MaxUpdatedAt(ctx context.Context) (int64, error) {
	return s.repomanager.Contracts(s.ro).MaxUpdatedAt(ctx)
}

// Stats reads row counts and the high-water mark from one snapshot.
func (s *ContractService) Stats(ctx context.Context) (models.StoreStats, error) {
	var st models.StoreStats
	err := dbx.WithReadTx(ctx, s.ro, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contracts(tx)
		var err error
		if st.Live, st.Deleted, err = repo.Count(ctx); err != nil {
			return err
		}
		st.MaxUpdatedAt, err = repo.MaxUpdatedAt(ctx)
		return err
	})
	return st, err
}

func (s *ContractService) Get(ctx context.Context, id int64) (*models.Contract, error) {
	return s.repomanager.Contracts(s.ro).Get(ctx, id)
}

// ListSince returns the contracts changed after since together with the
// high-water mark clients should send next time: the newest UpdatedAt among
// the returned items, never below since.
func (s *ContractService) ListSince(ctx context.Context, since int64, allowDeleted bool) ([]*models.Contract, int64, error) {
	items, err := s.repomanager.Contracts(s.ro).ListSince(ctx, since, allowDeleted)
	if err != nil {
		return nil, 0, err
	}
	maxTS := since
	for _, c := range items {
		maxTS = max(maxTS, c.UpdatedAt())
	}
	return items, maxTS, nil
}

// SoftDelete marks a contract deleted and returns the mutation timestamp.
func (s *ContractService) SoftDelete(ctx context.Context, id int64) (int64, error) {
	ts := s.now().UnixMilli()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Contracts(tx).SoftDelete(ctx, id, ts)
	})
	return ts, err
}

// SetNotes replaces the local notes; nil clears them.
func (s *ContractService) SetNotes(ctx context.Context, id int64, notes *string) (int64, error) {
	ts := s.now().UnixMilli()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Contracts(tx).SetNotes(ctx, id, notes, ts)
	})
	return ts, err
}

// AddLabel links a live label to a contract.
func (s *ContractService) AddLabel(ctx context.Context, id, labelID int64) (int64, error) {
	ts := s.now().UnixMilli()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Contracts(tx).GetHashes(ctx, id); err != nil {
			return err
		}
		ok, err := s.repomanager.Labels(tx).Exists(ctx, labelID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("label %d: %w", labelID, common.ErrorNotFound)
		}
		return s.repomanager.Contracts(tx).AddLabel(ctx, id, labelID, ts)
	})
	return ts, err
}

func (s *ContractService) RemoveLabel(ctx context.Context, id, labelID int64) (int64, error) {
	ts := s.now().UnixMilli()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Contracts(tx).RemoveLabel(ctx, id, labelID, ts)
	})
	return ts, err
}
