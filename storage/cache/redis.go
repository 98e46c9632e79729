package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/inclusiva/core"
)

// Redis shares cached values between API instances.
type Redis struct {
	client *redis.Client
}

var _ core.Cache = (*Redis)(nil)

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// OpenRedis parses url, connects and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.NewUpstreamError("pinging redis", err)
	}
	return client, nil
}

func (c *Redis) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, core.NewUpstreamError("redis get", err)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrapf(err, "decoding cached %q", key)
	}
	return true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encoding %q", key)
	}
	if err = c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return core.NewUpstreamError("redis set", err)
	}
	return nil
}

func (c *Redis) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return core.NewUpstreamError("redis del", err)
	}
	return nil
}
