package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/casely/internal/server/auth"
	"github.com/dmitrijs2005/casely/internal/server/polling"
)

type credentialRequest struct {
	Token       string `json:"access_token" validate:"required"`
	PrincipalID string `json:"userId" validate:"required"`
}

// AuthResponse is the stored credential as served by GET /api/auth.
type AuthResponse struct {
	Token       string `json:"access_token,omitempty"`
	PrincipalID string `json:"userId,omitempty"`
	ExpiresAt   *int64 `json:"expires_at,omitempty"`
	Paused      bool   `json:"paused"`
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) getAuth(w http.ResponseWriter, r *http.Request) {
	cred, err := s.credentials.Load(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := AuthResponse{
		Token:       cred.Token,
		PrincipalID: cred.PrincipalID,
		Paused:      s.credentials.Paused(),
	}
	// Opaque tokens simply carry no expiry.
	if info, err := auth.InspectToken(cred.Token); err == nil && info.ExpiresAt != nil {
		exp := info.ExpiresAt.Unix()
		resp.ExpiresAt = &exp
	}

	writeJSON(w, http.StatusOK, resp)
}

// setAuth hands the credential to the poller; it is persisted on the
// poller's next tick.
func (s *Server) setAuth(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	s.poller.Submit(polling.ControlSetCredential{Token: req.Token, PrincipalID: req.PrincipalID})
	s.logger.Info(r.Context(), "credential submitted",
		"userId", req.PrincipalID, "request_id", RequestIDFrom(r.Context()))

	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) clearAuth(w http.ResponseWriter, r *http.Request) {
	s.poller.Submit(polling.ControlClearCredential{})
	s.logger.Info(r.Context(), "credential clear submitted", "request_id", RequestIDFrom(r.Context()))

	writeJSON(w, http.StatusOK, ok())
}
