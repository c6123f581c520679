package polling

import "github.com/dmitrijs2005/casely/internal/server/models"

// ControlMessage is a request from outside the loop (the public API) that
// the poller applies at the start of its next tick.
type ControlMessage interface {
	isControl()
}

// ControlSetCredential replaces the stored credential.
type ControlSetCredential struct {
	Token       string
	PrincipalID string
}

// ControlClearCredential empties the stored credential and pauses polling.
type ControlClearCredential struct{}

func (ControlSetCredential) isControl()   {}
func (ControlClearCredential) isControl() {}

func (m ControlSetCredential) credential() models.Credential {
	return models.Credential{Token: m.Token, PrincipalID: m.PrincipalID}
}
