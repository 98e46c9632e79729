package core

import (
	"context"
	"time"
)

// Cache is a small key/value cache for rarely changing values.
// Get reports false when the key is absent or expired.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
