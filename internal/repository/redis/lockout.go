package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisx "github.com/kirinyoku/vastore/internal/redis"
)

// KEYS[1] = failures counter
// KEYS[2] = lock key
// ARGV[1] = window_ms
// ARGV[2] = max failures before locking
// ARGV[3] = base lock_ms
// ARGV[4] = max lock multiplier
const luaLoginFailure = `
local fails = redis.call('INCR', KEYS[1])
if fails == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end

local max = tonumber(ARGV[2])
local lock_ms = 0
if fails >= max then
  local mult = fails - max + 1
  local cap = tonumber(ARGV[4])
  if mult > cap then mult = cap end
  lock_ms = tonumber(ARGV[3]) * mult
  redis.call('SET', KEYS[2], fails, 'PX', lock_ms)
end
return {fails, lock_ms}
`

type LockoutConfig struct {
	Window      time.Duration
	MaxFailures int
	BaseLock    time.Duration
	MaxMultiple int
}

// LoginLockout counts failed admin logins per identity and locks the
// identity out with a growing penalty once the budget is spent.
type LoginLockout struct {
	rdb    *redis.Client
	cfg    LockoutConfig
	script *redis.Script
}

func NewLoginLockout(rdb *redis.Client, cfg LockoutConfig) *LoginLockout {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.BaseLock <= 0 {
		cfg.BaseLock = 10 * time.Minute
	}
	if cfg.MaxMultiple <= 0 {
		cfg.MaxMultiple = 4
	}

	return &LoginLockout{rdb: rdb, cfg: cfg, script: redis.NewScript(luaLoginFailure)}
}

// Locked returns the remaining lock time, zero when the identity may try.
func (l *LoginLockout) Locked(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, redisx.KeyLoginLock(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}

// RegisterFailure records a failed attempt and returns the failure count in
// the current window and the lock it triggered, if any.
func (l *LoginLockout) RegisterFailure(ctx context.Context, id string) (int64, time.Duration, error) {
	const op = "redisrepo.LoginLockout.RegisterFailure"

	vals, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{redisx.KeyLoginFailures(id), redisx.KeyLoginLock(id)},
		l.cfg.Window.Milliseconds(), l.cfg.MaxFailures, l.cfg.BaseLock.Milliseconds(), l.cfg.MaxMultiple,
	).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("%s: unexpected script result %v", op, vals)
	}

	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// Reset forgets failures and any lock after a successful login.
func (l *LoginLockout) Reset(ctx context.Context, id string) error {
	return l.rdb.Del(ctx, redisx.KeyLoginFailures(id), redisx.KeyLoginLock(id)).Err()
}
