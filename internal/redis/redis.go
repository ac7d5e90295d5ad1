// Package redisx connects to Redis and owns the key layout and the
// listings change channel shared by every instance.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// PingTimeout bounds the startup check. Defaults to 3s.
	PingTimeout time.Duration
}

// New returns a client that has answered PING. Rate limiting, admin lockout
// and idempotency depend on Redis, so startup fails without it.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redisx.New"

	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "vastore",
	})

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ctxPing, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: ping %s: %w", op, cfg.Addr, err)
	}

	return client, nil
}
