package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/casely/internal/server/models"
)

type LabelItem struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Color     *string `json:"color"`
	OrderRank int64   `json:"order_rank"`
	UpdatedAt int64   `json:"updated_at"`
	DeletedAt *int64  `json:"deleted_at"`
}

type LabelList struct {
	MaxUpdatedAt int64       `json:"max_updated_at"`
	Items        []LabelItem `json:"items"`
}

type labelRequest struct {
	Name      string  `json:"name" validate:"required|maxLen:100"`
	Color     *string `json:"color"`
	OrderRank int64   `json:"order_rank"`
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	since, err := queryInt64(r, "updated_since")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	labels, maxTS, err := s.labels.ListSince(r.Context(), since)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := LabelList{MaxUpdatedAt: maxTS, Items: make([]LabelItem, 0, len(labels))}
	for _, l := range labels {
		resp.Items = append(resp.Items, LabelItem{
			ID:        l.ID,
			Name:      l.Name,
			Color:     l.Color,
			OrderRank: l.OrderRank,
			UpdatedAt: l.UpdatedAt,
			DeletedAt: l.DeletedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) upsertLabel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req labelRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ts, err := s.labels.Upsert(r.Context(), models.Label{
		ID:        id,
		Name:      req.Name,
		Color:     req.Color,
		OrderRank: req.OrderRank,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okAt(ts))
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ts, err := s.labels.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okAt(ts))
}
