package polling

import (
	"context"
	"fmt"
	"time"
)

// SweepResult summarises one staleness sweep.
type SweepResult struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Candidates int           `json:"candidates"`
	Refreshed  int           `json:"refreshed"`
	Stopped    bool          `json:"stopped"`
	Reason     string        `json:"reason,omitempty"`
}

// RefreshStale re-fetches up to RefreshBatch live records whose last fetch
// is older than RefreshTTL, oldest first. The first failed fetch ends the
// sweep; what was refreshed before it stays.
func (p *Poller) RefreshStale(ctx context.Context) (res SweepResult, err error) {
	res.StartedAt = p.now()
	if p.cfg.RefreshTTL <= 0 {
		return res, nil
	}
	defer func() { res.Duration = p.now().Sub(res.StartedAt) }()

	cred, err := p.credentials.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load credential: %w", err)
	}
	if !cred.Usable() {
		return res, nil
	}

	olderThan := res.StartedAt.Add(-p.cfg.RefreshTTL).UnixMilli()
	ids, err := p.contracts.StaleIDs(ctx, olderThan, p.cfg.RefreshBatch)
	if err != nil {
		return res, fmt.Errorf("failed to select stale records: %w", err)
	}
	res.Candidates = len(ids)

	for _, id := range ids {
		switch s := p.fetchStep(ctx, cred, id).(type) {
		case stepAbort:
			res.Stopped, res.Reason = true, s.reason
			p.log.Warn(ctx, "refresh fetch failed, sweep stopped", "id", id, "error", s.err)
			return res, nil
		case stepContinue:
			fetchedAt := p.now().UnixMilli()
			outcome, err := p.contracts.UpsertFetched(ctx, id, s.detail.DetailJSON, s.detail.ChatsJSON, fetchedAt)
			if err != nil {
				return res, err
			}
			res.Refreshed++
			p.archive(ctx, id, fetchedAt, outcome, s.detail.DetailJSON, s.detail.ChatsJSON)
		}
		p.sleep(ctx, p.cfg.ItemDelay)
	}
	return res, nil
}
