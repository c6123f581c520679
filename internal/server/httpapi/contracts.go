package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/goccy/go-json"
)

// ContractItem is the wire form of one synced contract.
type ContractItem struct {
	ID              int64           `json:"id"`
	Detail          json.RawMessage `json:"detail"`
	Chats           json.RawMessage `json:"chats"`
	Notes           *string         `json:"notes"`
	Labels          []int64         `json:"labels"`
	SourceFetchedAt int64           `json:"source_fetched_at"`
	SourceUpdatedAt int64           `json:"source_updated_at"`
	UserUpdatedAt   int64           `json:"user_updated_at"`
	DeletedAt       *int64          `json:"deleted_at"`
	UpdatedAt       int64           `json:"updated_at"`
}

type ContractList struct {
	MaxUpdatedAt int64          `json:"max_updated_at"`
	Items        []ContractItem `json:"items"`
}

type notesRequest struct {
	Notes *string `json:"notes"`
}

type contractLabelRequest struct {
	LabelID int64 `json:"labelId" validate:"required|min:1"`
}

func toContractItem(c *models.Contract) ContractItem {
	labels := c.LabelIDs
	if labels == nil {
		labels = []int64{}
	}
	return ContractItem{
		ID:              c.ID,
		Detail:          rawOr(c.DetailJSON, "{}"),
		Chats:           rawOr(c.ChatsJSON, "[]"),
		Notes:           c.Notes,
		Labels:          labels,
		SourceFetchedAt: c.SourceFetchedAt,
		SourceUpdatedAt: c.SourceUpdatedAt,
		UserUpdatedAt:   c.UserUpdatedAt,
		DeletedAt:       c.DeletedAt,
		UpdatedAt:       c.UpdatedAt(),
	}
}

func rawOr(b []byte, def string) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage(def)
	}
	return json.RawMessage(b)
}

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	since, err := queryInt64(r, "updated_since")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	allowDeleted, err := queryBool(r, "allow_deleted")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	items, maxTS, err := s.contracts.ListSince(r.Context(), since, allowDeleted)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := ContractList{MaxUpdatedAt: maxTS, Items: make([]ContractItem, 0, len(items))}
	for _, c := range items {
		resp.Items = append(resp.Items, toContractItem(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	c, err := s.contracts.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractItem(c))
}

func (s *Server) deleteContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ts, err := s.contracts.SoftDelete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okAt(ts))
}

func (s *Server) setNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req notesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ts, err := s.contracts.SetNotes(r.Context(), id, req.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okAt(ts))
}

func (s *Server) addLabel(w http.ResponseWriter, r *http.Request) {
	s.changeLabel(w, r, s.contracts.AddLabel)
}

func (s *Server) removeLabel(w http.ResponseWriter, r *http.Request) {
	s.changeLabel(w, r, s.contracts.RemoveLabel)
}

func (s *Server) changeLabel(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, labelID int64) (int64, error)) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req contractLabelRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ts, err := apply(r.Context(), id, req.LabelID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okAt(ts))
}
