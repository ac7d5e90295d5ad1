package redisrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

// IdempotencyStore remembers the response of a request keyed by its
// Idempotency-Key. A key is either locked while the first request runs or
// holds the stored response.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key, jsonPayload string) error {
	return s.rdb.Set(ctx, key, idemResult+jsonPayload, s.ttl).Err()
}

func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasPrefix(v, idemResult) {
		return strings.TrimPrefix(v, idemResult), true, nil
	}

	return "", false, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == idemLock, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

type IdemOutcome int

const (
	// IdemAcquired means the caller owns the key and must save or release it.
	IdemAcquired IdemOutcome = iota
	// IdemReplay means a stored response is available.
	IdemReplay
	// IdemInFlight means another request holds the key right now.
	IdemInFlight
)

// Begin resolves key to one of the outcomes above. The stored payload is
// returned for IdemReplay.
func (s *IdempotencyStore) Begin(ctx context.Context, key string, lockTTL time.Duration) (IdemOutcome, string, error) {
	if res, ok, err := s.GetResult(ctx, key); err != nil {
		return 0, "", err
	} else if ok {
		return IdemReplay, res, nil
	}

	acquired, err := s.AcquireLock(ctx, key, lockTTL)
	if err != nil {
		return 0, "", err
	}
	if acquired {
		return IdemAcquired, "", nil
	}

	// The first request may have finished between the two reads.
	if res, ok, err := s.GetResult(ctx, key); err != nil {
		return 0, "", err
	} else if ok {
		return IdemReplay, res, nil
	}

	return IdemInFlight, "", nil
}
