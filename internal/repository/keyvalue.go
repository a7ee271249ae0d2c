package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key or directory entry does not exist.
var ErrNotFound = errors.New("repository: not found")

// KeyValue abstracts durable client-side key-value storage.
// Implementations: Redis and PostgreSQL.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
