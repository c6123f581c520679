package polling

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/server/archive"
	"github.com/dmitrijs2005/casely/internal/server/models"
)

// BatchResult summarises one ingestion batch.
type BatchResult struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	CursorBefore int64         `json:"cursor_before"`
	CursorAfter  int64         `json:"cursor_after"`
	Pages        int           `json:"pages"`
	Created      int           `json:"created"`
	Changed      int           `json:"changed"`
	Unchanged    int           `json:"unchanged"`
	Aborted      bool          `json:"aborted"`
	Reason       string        `json:"reason,omitempty"`
}

// Stored is the number of records written in the batch.
func (r BatchResult) Stored() int {
	return r.Created + r.Changed + r.Unchanged
}

func (r *BatchResult) count(o models.UpsertOutcome) {
	switch o {
	case models.OutcomeCreated:
		r.Created++
	case models.OutcomeChanged:
		r.Changed++
	case models.OutcomeUnchanged:
		r.Unchanged++
	}
}

// PollOnce runs one batch: page through the origin list newer than the
// effective cursor, fetch and store each wanted record, and advance the
// cursor to the highest stored id once every record was handled.
//
// An origin failure aborts the batch with the cursor untouched, so the
// failed record and everything after it are fetched again next time. A
// persistence failure aborts it too and is returned as an error.
func (p *Poller) PollOnce(ctx context.Context) (res BatchResult, err error) {
	res.StartedAt = p.now()
	defer func() { res.Duration = p.now().Sub(res.StartedAt) }()

	cred, err := p.credentials.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load credential: %w", err)
	}
	if !cred.Usable() {
		return res, common.ErrNotConfigured
	}

	start, err := p.cursor.Effective(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read cursor: %w", err)
	}
	res.CursorBefore, res.CursorAfter = start, start
	batchMax := start

	for page := 1; ; page++ {
		lp, err := p.fetcher.FetchListPage(ctx, cred, page, p.cfg.PageSize, start)
		if err != nil {
			res.Aborted, res.Reason = true, abortReason(err)
			p.log.Warn(ctx, "list page failed, batch aborted", "page", page, "error", err)
			return res, nil
		}
		res.Pages++

		for _, item := range lp.Items {
			switch s := p.fetchStep(ctx, cred, item.ID).(type) {
			case stepAbort:
				res.Aborted, res.Reason = true, s.reason
				p.log.Warn(ctx, "record fetch failed, batch aborted", "id", item.ID, "error", s.err)
				return res, nil
			case stepContinue:
				fetchedAt := p.now().UnixMilli()
				outcome, err := p.contracts.UpsertFetched(ctx, item.ID, s.detail.DetailJSON, s.detail.ChatsJSON, fetchedAt)
				if err != nil {
					res.Aborted, res.Reason = true, "persistence"
					return res, err
				}
				res.count(outcome)
				batchMax = max(batchMax, item.ID)
				p.archive(ctx, item.ID, fetchedAt, outcome, s.detail.DetailJSON, s.detail.ChatsJSON)
				p.log.Debug(ctx, "record stored", "id", item.ID, "outcome", outcome.String())
			}
			p.sleep(ctx, p.cfg.ItemDelay)
		}

		if !lp.HasMore {
			break
		}
		p.sleep(ctx, p.cfg.PageDelay)
	}

	if batchMax > start {
		moved, err := p.cursor.Advance(ctx, batchMax)
		if err != nil {
			return res, err
		}
		if moved {
			res.CursorAfter = batchMax
		}
	}
	return res, nil
}

func (p *Poller) archive(ctx context.Context, id, fetchedAt int64, outcome models.UpsertOutcome, detail, chats []byte) {
	if outcome == models.OutcomeUnchanged {
		return
	}
	err := p.archiver.Archive(ctx, archive.Record{
		ID:        id,
		FetchedAt: fetchedAt,
		Outcome:   outcome.String(),
		Detail:    detail,
		Chats:     chats,
	})
	if err != nil {
		p.log.Warn(ctx, "archive failed", "id", id, "error", err)
	}
}
