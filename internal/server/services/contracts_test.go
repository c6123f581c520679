package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/cryptox"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertFetched_CreatedUnchangedChanged(t *testing.T) {
	db, rm := newStore(t)
	s := NewContractService(db.RW, db.RO, rm)
	ctx := context.Background()

	detail := []byte(`{"id":7,"title":"a"}`)
	chats := []byte(`[]`)

	out, err := s.UpsertFetched(ctx, 7, detail, chats, 1000)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCreated, out)

	c, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.SourceFetchedAt)
	assert.Equal(t, int64(1000), c.SourceUpdatedAt)
	assert.Equal(t, cryptox.Fingerprint(detail), c.DetailHash)
	assert.Equal(t, cryptox.Fingerprint(chats), c.ChatsHash)

	out, err = s.UpsertFetched(ctx, 7, detail, chats, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, out)

	c, err = s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), c.SourceFetchedAt)
	assert.Equal(t, int64(1000), c.SourceUpdatedAt, "unchanged content keeps source_updated_at")

	newChats := []byte(`[{"msg":"hi"}]`)
	out, err = s.UpsertFetched(ctx, 7, detail, newChats, 3000)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeChanged, out)

	c, err = s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), c.SourceFetchedAt)
	assert.Equal(t, int64(3000), c.SourceUpdatedAt)
	assert.JSONEq(t, string(newChats), string(c.ChatsJSON))
	assert.Equal(t, cryptox.Fingerprint(newChats), c.ChatsHash)
}

func TestUpsertFetched_KeepsUserColumns(t *testing.T) {
	db, rm := newStore(t)
	s := NewContractService(db.RW, db.RO, rm)
	s.now = fixedClock(1500)
	ctx := context.Background()

	_, err := s.UpsertFetched(ctx, 1, []byte(`{"v":1}`), []byte(`[]`), 1000)
	require.NoError(t, err)

	notes := "call back"
	_, err = s.SetNotes(ctx, 1, &notes)
	require.NoError(t, err)
	_, err = s.AddLabel(ctx, 1, 1)
	require.ErrorIs(t, err, common.ErrorNotFound, "label 1 does not exist yet")

	db.Exec(t, `INSERT INTO labels (id, name, order_rank, updated_at) VALUES (1, 'x', 1, 1)`)
	_, err = s.AddLabel(ctx, 1, 1)
	require.NoError(t, err)

	_, err = s.UpsertFetched(ctx, 1, []byte(`{"v":2}`), []byte(`[]`), 2000)
	require.NoError(t, err)

	c, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, c.Notes)
	assert.Equal(t, "call back", *c.Notes)
	assert.Equal(t, []int64{1}, c.LabelIDs)
	assert.Equal(t, int64(1500), c.UserUpdatedAt)
	assert.Equal(t, int64(2000), c.UpdatedAt())
}

func TestUpsertFetched_RollsBackOnError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeContractsRepo{hashesErr: common.ErrorNotFound, insertErr: errBoom}
	s := NewContractService(db, nil, &fakeRepoManager{c: repo})

	_, err := s.UpsertFetched(context.Background(), 1, []byte(`{}`), []byte(`[]`), 1)
	require.ErrorIs(t, err, errBoom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFetched_LookupError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeContractsRepo{hashesErr: errBoom}
	s := NewContractService(db, nil, &fakeRepoManager{c: repo})

	_, err := s.UpsertFetched(context.Background(), 1, []byte(`{}`), []byte(`[]`), 1)
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, repo.inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStaleIDsAndTouch(t *testing.T) {
	db, rm := newStore(t)
	s := NewContractService(db.RW, db.RO, rm)
	ctx := context.Background()

	for id, ts := range map[int64]int64{1: 100, 2: 50, 3: 900} {
		_, err := s.UpsertFetched(ctx, id, []byte(`{}`), []byte(`[]`), ts)
		require.NoError(t, err)
	}
	_, err := s.SoftDelete(ctx, 2)
	require.NoError(t, err)

	ids, err := s.StaleIDs(ctx, 500, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids, "deleted and fresh rows are skipped")

	require.NoError(t, s.TouchFetchedAt(ctx, 1, 600))
	ids, err = s.StaleIDs(ctx, 500, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.ErrorIs(t, s.TouchFetchedAt(ctx, 99, 600), common.ErrorNotFound)
}

func TestListSince(t *testing.T) {
	db, rm := newStore(t)
	s := NewContractService(db.RW, db.RO, rm)
	s.now = fixedClock(5000)
	ctx := context.Background()

	_, err := s.UpsertFetched(ctx, 1, []byte(`{}`), []byte(`[]`), 1000)
	require.NoError(t, err)
	_, err = s.UpsertFetched(ctx, 2, []byte(`{}`), []byte(`[]`), 2000)
	require.NoError(t, err)
	_, err = s.SoftDelete(ctx, 1)
	require.NoError(t, err)

	items, maxTS, err := s.ListSince(ctx, 1500, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), maxTS)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)

	items, maxTS, err = s.ListSince(ctx, 1500, true)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(5000), maxTS)

	items, maxTS, err = s.ListSince(ctx, 9000, true)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(9000), maxTS, "never below since")

	total, err := s.MaxUpdatedAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StoreStats{Live: 1, Deleted: 1, MaxUpdatedAt: 5000}, st)
}

func TestMutations_NotFound(t *testing.T) {
	db, rm := newStore(t)
	s := NewContractService(db.RW, db.RO, rm)
	ctx := context.Background()

	_, err := s.SoftDelete(ctx, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.SetNotes(ctx, 1, nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.AddLabel(ctx, 1, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.RemoveLabel(ctx, 1, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
