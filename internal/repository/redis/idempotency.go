package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLocked = "LOCK"
	idemResult = "RES:"
)

// IdempotencyStore remembers the response of a request carrying an
// Idempotency-Key so that retries replay it instead of repeating the write.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims key for the caller. It returns false when another request
// holds the key or already stored a result under it.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLocked, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, status int, jsonPayload string) error {
	return s.rdb.Set(ctx, key, idemResult+encodeStatus(status)+jsonPayload, s.ttl).Err()
}

// GetResult returns the stored status and body for key, if any.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (int, string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	if !strings.HasPrefix(v, idemResult) {
		return 0, "", false, nil
	}

	status, body := decodeStatus(strings.TrimPrefix(v, idemResult))
	return status, body, true, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == idemLocked, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// status is stored as a fixed three-digit prefix of the payload
func encodeStatus(status int) string {
	if status < 100 || status > 999 {
		status = 200
	}
	return fmt.Sprintf("%03d", status)
}

func decodeStatus(v string) (int, string) {
	if len(v) < 3 {
		return 200, v
	}
	n, err := strconv.Atoi(v[:3])
	if err != nil {
		return 200, v
	}
	return n, v[3:]
}
