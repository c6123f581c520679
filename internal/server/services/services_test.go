package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/casely/internal/server/repositories/metadata"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casely/internal/server/storetest"
)

var errBoom = errors.New("boom")

// -------- test fakes --------

type fakeContractsRepo struct {
	contracts.Repository
	hashes    *models.ContractHashes
	hashesErr error
	insertErr error
	inserted  []*models.Contract
}

func (f *fakeContractsRepo) GetHashes(ctx context.Context, id int64) (*models.ContractHashes, error) {
	return f.hashes, f.hashesErr
}

func (f *fakeContractsRepo) Insert(ctx context.Context, c *models.Contract) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, c)
	return nil
}

type fakeMetadataRepo struct {
	metadata.Repository
	values map[string][]byte
	getErr error
	setErr error
}

func (f *fakeMetadataRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.values[key], nil
}

func (f *fakeMetadataRepo) Set(ctx context.Context, key string, value []byte, updatedAt int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.values == nil {
		f.values = map[string][]byte{}
	}
	f.values[key] = value
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	c *fakeContractsRepo
	m *fakeMetadataRepo
}

func (m *fakeRepoManager) Contracts(db dbx.DBTX) contracts.Repository { return m.c }
func (m *fakeRepoManager) Metadata(db dbx.DBTX) metadata.Repository   { return m.m }

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newStore(t *testing.T) (*storetest.DB, repomanager.RepositoryManager) {
	t.Helper()
	return storetest.New(t), repomanager.NewSQLiteRepositoryManager()
}
