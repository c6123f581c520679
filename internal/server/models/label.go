package models

// Label is a user-defined tag that can be attached to contracts.
type Label struct {
	ID        int64
	Name      string
	Color     *string
	OrderRank int64
	UpdatedAt int64
	DeletedAt *int64
}
