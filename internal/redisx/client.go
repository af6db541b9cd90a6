package redisx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// KV is the slice of Redis the guards need. Get reports a missing key as
// ok=false rather than an error.
type KV interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (val string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Client adapts a go-redis client to KV.
type Client struct{ RDB redis.UniversalClient }

var _ KV = Client{}

func (c Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := c.RDB.SetNX(ctx, key, value, ttl).Result()
	return ok, errors.Wrap(err, "redis setnx")
}

func (c Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get")
	}
	return v, true, nil
}

func (c Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Wrap(c.RDB.Set(ctx, key, value, ttl).Err(), "redis set")
}

func (c Client) Del(ctx context.Context, key string) error {
	return errors.Wrap(c.RDB.Del(ctx, key).Err(), "redis del")
}

func Ping(ctx context.Context, rdb redis.UniversalClient) error {
	return errors.Wrap(rdb.Ping(ctx).Err(), "redis ping")
}
