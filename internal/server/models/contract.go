// Package models defines server-side data models persisted in the database.
package models

// Contract is one origin record as stored locally. Timestamps are Unix
// milliseconds; zero means "never".
type Contract struct {
	ID int64

	DetailJSON []byte
	ChatsJSON  []byte
	DetailHash string
	ChatsHash  string

	SourceFetchedAt int64
	SourceUpdatedAt int64
	UserUpdatedAt   int64

	Notes     *string
	DeletedAt *int64

	LabelIDs []int64
}

// UpdatedAt is the latest change of any kind, sync or local.
func (c *Contract) UpdatedAt() int64 {
	ts := max(c.SourceUpdatedAt, c.UserUpdatedAt)
	if c.DeletedAt != nil {
		ts = max(ts, *c.DeletedAt)
	}
	return ts
}

// ContractHashes is the stored fingerprint pair of one contract.
type ContractHashes struct {
	DetailHash string
	ChatsHash  string
}

// StoreStats summarises the contracts table.
type StoreStats struct {
	Live         int64 `json:"live"`
	Deleted      int64 `json:"deleted"`
	MaxUpdatedAt int64 `json:"max_updated_at"`
}
