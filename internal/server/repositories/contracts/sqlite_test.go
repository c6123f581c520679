package contracts

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *SQLiteRepository, id, fetchedAt int64) {
	t.Helper()
	require.NoError(t, r.Insert(context.Background(), &models.Contract{
		ID:              id,
		DetailJSON:      []byte(`{"id":1}`),
		ChatsJSON:       []byte(`[]`),
		DetailHash:      "dh",
		ChatsHash:       "ch",
		SourceFetchedAt: fetchedAt,
		SourceUpdatedAt: fetchedAt,
	}))
}

func TestInsertAndGet(t *testing.T) {
	db := storetest.New(t)
	r := NewSQLiteRepository(db.RW)
	ctx := context.Background()

	seed(t, r, 42, 1000)

	c, err := NewSQLiteRepository(db.RO).Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.ID)
	assert.JSONEq(t, `{"id":1}`, string(c.DetailJSON))
	assert.JSONEq(t, `[]`, string(c.ChatsJSON))
	assert.Equal(t, int64(1000), c.SourceFetchedAt)
	assert.Equal(t, int64(1000), c.SourceUpdatedAt)
	assert.Zero(t, c.UserUpdatedAt)
	assert.Nil(t, c.DeletedAt)
	assert.Nil(t, c.Notes)
	assert.Empty(t, c.LabelIDs)

	h, err := r.GetHashes(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, &models.ContractHashes{DetailHash: "dh", ChatsHash: "ch"}, h)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(storetest.New(t).RO)

	_, err := r.Get(context.Background(), 1)
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.GetHashes(context.Background(), 1)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestInsert_RejectsInvalidJSON(t *testing.T) {
	r := NewSQLiteRepository(storetest.New(t).RW)

	err := r.Insert(context.Background(), &models.Contract{
		ID: 1, DetailJSON: []byte(`{oops`), ChatsJSON: []byte(`[]`), DetailHash: "a", ChatsHash: "b",
	})
	require.Error(t, err)
}

func TestReplacePayloadAndTouch(t *testing.T) {
	db := storetest.New(t)
	r := NewSQLiteRepository(db.RW)
	ctx := context.Background()

	seed(t, r, 7, 100)
	require.NoError(t, r.SetNotes(ctx, 7, ptr("keep me"), 150))

	require.NoError(t, r.ReplacePayload(ctx, &models.Contract{
		ID: 7, DetailJSON: []byte(`{"id":2}`), ChatsJSON: []byte(`[1]`),
		DetailHash: "dh2", ChatsHash: "ch2", SourceFetchedAt: 200, SourceUpdatedAt: 200,
	}))

	ok, err := r.TouchFetchedAt(ctx, 7, 300)
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := r.Get(ctx, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2}`, string(c.DetailJSON))
	assert.Equal(t, "dh2", c.DetailHash)
	assert.Equal(t, int64(300), c.SourceFetchedAt)
	assert.Equal(t, int64(200), c.SourceUpdatedAt)
	require.NotNil(t, c.Notes)
	assert.Equal(t, "keep me", *c.Notes, "sync writes must not clobber user columns")
	assert.Equal(t, int64(150), c.UserUpdatedAt)

	ok, err = r.TouchFetchedAt(ctx, 999, 300)
	require.NoError(t, err)
	assert.False(t, ok)

	err = r.ReplacePayload(ctx, &models.Contract{ID: 999, DetailJSON: []byte(`{}`), ChatsJSON: []byte(`[]`)})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStaleIDs(t *testing.T) {
	db := storetest.New(t)
	r := NewSQLiteRepository(db.RW)
	ctx := context.Background()

	seed(t, r, 1, 500)
	seed(t, r, 2, 100)
	seed(t, r, 3, 100)
	seed(t, r, 4, 900)
	seed(t, r, 5, 0)
	require.NoError(t, r.SoftDelete(ctx, 3, 50))

	ids, err := r.StaleIDs(ctx, 600, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 2, 1}, ids)

	ids, err = r.StaleIDs(ctx, 600, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 2}, ids)

	ids, err = r.StaleIDs(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListSinceAndMaxUpdatedAt(t *testing.T) {
	db := storetest.New(t)
	r := NewSQLiteRepository(db.RW)
	ctx := context.Background()

	ts, err := r.MaxUpdatedAt(ctx)
	require.NoError(t, err)
	assert.Zero(t, ts)

	seed(t, r, 1, 100)
	seed(t, r, 2, 200)
	seed(t, r, 3, 300)
	require.NoError(t, r.SoftDelete(ctx, 3, 400))

	all, err := r.ListSince(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID)

	live, err := r.ListSince(ctx, 0, false)
	require.NoError(t, err)
	require.Len(t, live, 2)

	recent, err := r.ListSince(ctx, 150, false)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(2), recent[0].ID)

	ts, err = r.MaxUpdatedAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(400), ts)

	liveN, deletedN, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), liveN)
	assert.Equal(t, int64(1), deletedN)
}

func TestLabels(t *testing.T) {
	db := storetest.New(t)
	r := NewSQLiteRepository(db.RW)
	ctx := context.Background()

	db.Exec(t, `INSERT INTO labels (id, name) VALUES (1, 'a'), (2, 'b')`)
	seed(t, r, 10, 100)

	require.NoError(t, r.AddLabel(ctx, 10, 2, 500))
	require.NoError(t, r.AddLabel(ctx, 10, 1, 600))
	require.NoError(t, r.AddLabel(ctx, 10, 1, 700), "adding twice is a no-op")

	c, err := r.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, c.LabelIDs)
	assert.Equal(t, int64(700), c.UserUpdatedAt)
	assert.Equal(t, int64(100), c.SourceUpdatedAt)

	require.NoError(t, r.RemoveLabel(ctx, 10, 2, 800))
	c, err = r.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, c.LabelIDs)
	assert.Equal(t, int64(800), c.UserUpdatedAt)

	err = r.RemoveLabel(ctx, 11, 1, 900)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSoftDelete_NotFound(t *testing.T) {
	r := NewSQLiteRepository(storetest.New(t).RW)
	require.ErrorIs(t, r.SoftDelete(context.Background(), 5, 1), common.ErrorNotFound)
}

func TestStaleIDs_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	q := `(?s)^\s*SELECT id FROM contracts\s+WHERE \(source_fetched_at IS NULL OR source_fetched_at < \?\)\s+AND deleted_at IS NULL\s+ORDER BY source_fetched_at ASC, id ASC\s+LIMIT \?\s*$`
	mock.ExpectQuery(q).WithArgs(int64(10), 5).WillReturnError(errors.New("db down"))

	_, err = NewSQLiteRepository(db).StaleIDs(context.Background(), 10, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchFetchedAt_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE contracts SET source_fetched_at = \? WHERE id = \?`).
		WithArgs(int64(9), int64(1)).
		WillReturnError(errors.New("locked"))

	_, err = NewSQLiteRepository(db).TouchFetchedAt(context.Background(), 1, 9)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("3,1,2")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = parseIDList("")
	require.NoError(t, err)
	assert.Equal(t, []int64{}, ids)

	_, err = parseIDList("1,x")
	require.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
