// Package cache implements core.Cache in process memory and on Redis.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
)

var NowFunc = time.Now // mockable

type memoryItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is a process-local cache. Values are stored JSON-encoded so readers never share
// memory with writers, matching the Redis implementation.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

var _ core.Cache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem)}
}

func (c *Memory) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !item.expiresAt.IsZero() && !NowFunc().Before(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(item.value, dest); err != nil {
		return false, errors.Wrapf(err, "decoding cached %q", key)
	}
	return true, nil
}

func (c *Memory) Set(_ context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encoding %q", key)
	}
	item := memoryItem{value: data}
	if ttl > 0 {
		item.expiresAt = NowFunc().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}
