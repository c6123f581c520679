// Package polling drives ingestion from the origin: incremental batches
// bounded by a persisted cursor, a staleness sweep that re-fetches old
// records, and the scheduler loop that runs both.
package polling

import (
	"context"
	"time"

	"github.com/dmitrijs2005/casely/internal/logging"
	"github.com/dmitrijs2005/casely/internal/server/archive"
	"github.com/dmitrijs2005/casely/internal/server/metrics"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/origin"
)

// Fetcher is the origin side; *origin.Client implements it.
type Fetcher interface {
	FetchListPage(ctx context.Context, cred models.Credential, page, pageSize int, lowerBound int64) (origin.ListPage, error)
	FetchDetail(ctx context.Context, cred models.Credential, id int64) (origin.Detail, error)
}

type ContractStore interface {
	UpsertFetched(ctx context.Context, id int64, detail, chats []byte, fetchedAt int64) (models.UpsertOutcome, error)
	StaleIDs(ctx context.Context, olderThan int64, limit int) ([]int64, error)
}

type CursorStore interface {
	Stored(ctx context.Context) (int64, error)
	Effective(ctx context.Context) (int64, error)
	Advance(ctx context.Context, id int64) (bool, error)
}

type CredentialStore interface {
	Load(ctx context.Context) (models.Credential, error)
	Save(ctx context.Context, c models.Credential) (bool, error)
	Clear(ctx context.Context) error
	IsReady(ctx context.Context) (bool, error)
	Paused() bool
}

// Config paces the poller. Zero delays disable the corresponding sleep;
// a zero RefreshTTL disables the sweep.
type Config struct {
	PageSize      int
	ItemDelay     time.Duration
	PageDelay     time.Duration
	RefreshTTL    time.Duration
	RefreshBatch  int
	CycleInterval time.Duration

	// ControlBuffer is the capacity of the control queue, 8 when unset.
	ControlBuffer int
}

type Deps struct {
	Fetcher     Fetcher
	Contracts   ContractStore
	Cursor      CursorStore
	Credentials CredentialStore

	// Optional.
	Archiver archive.Archiver
	Metrics  metrics.Provider
	Logger   logging.Logger
}
