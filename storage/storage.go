package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is durable key-value storage. Values are opaque bytes; writes to a key
// overwrite whatever was there.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
	Close() error
}
