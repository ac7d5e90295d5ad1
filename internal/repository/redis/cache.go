package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	redisx "github.com/kirinyoku/vastore/internal/redis"
)

// Cache holds read-through copies of catalog queries. Entries are plain JSON
// strings with a TTL; writes to listings drop them through InvalidateCatalog.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) lookup(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}

	return true, nil
}

func (c *Cache) store(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON reads key, or loads and stores it. Concurrent misses for the
// same key share one loader call. A broken or unreachable cache falls through
// to the loader instead of failing the read.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	var hit T
	if ok, err := c.lookup(ctx, key, &hit); err == nil && ok {
		return hit, nil
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		var again T
		if ok, err := c.lookup(ctx, key, &again); err == nil && ok {
			return again, nil
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.store(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("redisrepo.GetOrSetJSON: unexpected %T for %s", vAny, key)
	}

	return v, nil
}

// InvalidateCatalog drops every cached listing page and listing detail.
func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, redisx.KeyCatalogPattern(), 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Unlink(ctx, keys...).Err()
}
