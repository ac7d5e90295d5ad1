package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	redisx "github.com/kirinyoku/vastore/internal/redis"
)

// KEYS[1] = window set
// ARGV[1] = now_ms, ARGV[2] = window_ms, ARGV[3] = limit, ARGV[4] = hit id
//
// Returns {allowed, hits, retry_ms}.
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)

local hits = redis.call('ZCARD', key)
if hits <= limit then
  return {1, hits, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry_ms = window - (now - (tonumber(oldest[2]) or now))
if retry_ms < 0 then retry_ms = 0 end
return {0, hits, retry_ms}
`

// Decision is the limiter's answer for one hit.
type Decision struct {
	Allowed bool
	// Hits counts requests in the current window, this one included.
	Hits       int64
	Remaining  int64
	RetryAfter time.Duration
}

// SlidingWindowLimiter allows at most limit hits per client within window.
// Denied hits still count, so a client hammering checkout stays blocked.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script
}

func NewSlidingWindowLimiter(rdb *redis.Client, scope string, limit int, window time.Duration) *SlidingWindowLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
	}
}

// Allow records a hit for client and reports whether it fits the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, client string) (Decision, error) {
	const op = "redisrepo.SlidingWindowLimiter.Allow"

	vals, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{redisx.KeyRateLimit(l.scope, client)},
		time.Now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", op, err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("%s: unexpected script result %v", op, vals)
	}

	d := Decision{
		Allowed:    vals[0] == 1,
		Hits:       vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}
	if rem := int64(l.limit) - d.Hits; rem > 0 {
		d.Remaining = rem
	}

	return d, nil
}
