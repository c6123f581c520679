package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/repositories/metadata"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
	"github.com/goccy/go-json"
)

// CredentialStore holds the origin credential and the in-memory pause
// flag. The flag is set when the origin rejects the credential and is
// cleared only by saving a different credential; it is not persisted.
type CredentialStore struct {
	db          *sql.DB
	ro          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time

	paused atomic.Bool
}

func NewCredentialStore(db, ro *sql.DB, repomanager repomanager.RepositoryManager) *CredentialStore {
	if ro == nil {
		ro = db
	}
	return &CredentialStore{db: db, ro: ro, repomanager: repomanager, now: time.Now}
}

// Load returns the stored credential; a missing or empty slot yields the
// zero Credential.
func (s *CredentialStore) Load(ctx context.Context) (models.Credential, error) {
	return readCredential(ctx, s.repomanager.Metadata(s.ro))
}

// Save stores c. Saving the credential already stored changes nothing, the
// pause flag included; any other value clears the pause. It reports
// whether the stored value changed.
func (s *CredentialStore) Save(ctx context.Context, c models.Credential) (bool, error) {
	if !c.Usable() {
		return false, common.ErrInvalidToken
	}

	changed := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Metadata(tx)
		current, err := readCredential(ctx, repo)
		if err != nil {
			return err
		}
		if current == c {
			return nil
		}
		value, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := repo.Set(ctx, common.CredentialKey, value, s.now().UnixMilli()); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to save credential: %w", err)
	}

	if changed {
		s.paused.Store(false)
	}
	return changed, nil
}

// Clear empties the stored credential and pauses polling.
func (s *CredentialStore) Clear(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Metadata(tx).Set(ctx, common.CredentialKey, []byte("{}"), s.now().UnixMilli())
	})
	if err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	s.paused.Store(true)
	return nil
}

// NotifyAuthStatus records an origin HTTP status and pauses on the
// auth-rejected status. It reports whether the status was a rejection.
func (s *CredentialStore) NotifyAuthStatus(code int) bool {
	if code != common.StatusAuthRejected {
		return false
	}
	s.paused.Store(true)
	return true
}

func (s *CredentialStore) Paused() bool { return s.paused.Load() }

// IsReady reports whether polling may run: not paused and a usable
// credential stored.
func (s *CredentialStore) IsReady(ctx context.Context) (bool, error) {
	if s.paused.Load() {
		return false, nil
	}
	c, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return c.Usable(), nil
}

func readCredential(ctx context.Context, repo metadata.Repository) (models.Credential, error) {
	var c models.Credential
	raw, err := repo.Get(ctx, common.CredentialKey)
	if err != nil || len(raw) == 0 {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return models.Credential{}, fmt.Errorf("corrupt credential value: %w", err)
	}
	return c, nil
}
