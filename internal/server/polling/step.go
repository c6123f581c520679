package polling

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/origin"
)

// step is the result of fetching one record: either the payload to store
// or the reason the current unit of work must stop. There is no "skip".
type step interface {
	isStep()
}

type stepContinue struct {
	detail origin.Detail
}

type stepAbort struct {
	reason string
	err    error
}

func (stepContinue) isStep() {}
func (stepAbort) isStep()    {}

func (p *Poller) fetchStep(ctx context.Context, cred models.Credential, id int64) step {
	d, err := p.fetcher.FetchDetail(ctx, cred, id)
	if err != nil {
		return stepAbort{reason: abortReason(err), err: err}
	}
	return stepContinue{detail: d}
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, common.ErrAuthRejected):
		return "auth_rejected"
	case errors.Is(err, common.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, common.ErrTransport):
		return "transport"
	}
	return "fetch_failed"
}
