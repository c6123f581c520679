package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/polling"
)

type CursorStatus struct {
	Stored    int64 `json:"stored"`
	Effective int64 `json:"effective"`
}

// StatusResponse is served by GET /api/status and printed by caselyctl.
type StatusResponse struct {
	Poller             polling.Status    `json:"poller"`
	Cursor             CursorStatus      `json:"cursor"`
	Contracts          models.StoreStats `json:"contracts"`
	LabelsMaxUpdatedAt int64             `json:"labels_max_updated_at"`
	MaxUpdatedAt       int64             `json:"max_updated_at"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		resp StatusResponse
		err  error
	)
	resp.Poller = s.poller.Status()

	if resp.Cursor.Stored, err = s.cursor.Stored(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	if resp.Cursor.Effective, err = s.cursor.Effective(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	if resp.Contracts, err = s.contracts.Stats(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	if resp.LabelsMaxUpdatedAt, err = s.labels.MaxUpdatedAt(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	resp.MaxUpdatedAt = max(resp.Contracts.MaxUpdatedAt, resp.LabelsMaxUpdatedAt)

	writeJSON(w, http.StatusOK, resp)
}
