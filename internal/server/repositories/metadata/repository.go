package metadata

import "context"

// Repository is a small key-value slot table. Values are JSON text.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, updatedAt int64) error
}
