package models

// Credential is the bearer credential used against the origin.
type Credential struct {
	Token       string `json:"access_token,omitempty"`
	PrincipalID string `json:"userId,omitempty"`
}

// Usable reports whether both fields are present.
func (c Credential) Usable() bool {
	return c.Token != "" && c.PrincipalID != ""
}

// Cursor is the persisted high-water mark of ingested origin ids.
type Cursor struct {
	MaxIDSeen int64 `json:"max_id_seen"`
}
