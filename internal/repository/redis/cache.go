package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON read-through cache. A nil *Cache is valid and caches
// nothing.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}

	s, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

func (c *Cache) SetString(
	ctx context.Context,
	key string,
	val string,
	ttl time.Duration,
) error {
	if c == nil {
		return nil
	}

	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	s, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(
	ctx context.Context,
	c *Cache,
	key string,
	val any,
	ttl time.Duration,
) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.SetString(ctx, key, string(b), ttl)
}

// GetOrSetJSON returns the cached value under key or loads, stores and
// returns it. Concurrent misses for the same key share one loader call. A
// failing cache read falls through to the loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return loader(ctx)
	}

	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v2, ok2, err2 := GetJSON[T](ctx, c, key); err2 == nil && ok2 {
			return v2, nil
		}
		v3, err3 := loader(ctx)
		if err3 != nil {
			return nil, err3
		}
		_ = SetJSON(ctx, c, key, v3, ttl)
		return v3, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

// seatMapGenTTL outlives any seat map entry by far; an expired generation
// counter restarts at zero only once every entry written under it is gone.
const seatMapGenTTL = 24 * time.Hour

// SeatMapKey returns the key of the session's current seat map generation.
// The generation is read before the caller loads, so a load that raced with
// InvalidateSession writes under a key no reader asks for any more.
func (c *Cache) SeatMapKey(ctx context.Context, sessionID int64) (string, error) {
	if c == nil {
		return KeySessionSeatMap(sessionID, 0), nil
	}

	gen, err := c.rdb.Get(ctx, KeySessionSeatMapGen(sessionID)).Int64()
	if errors.Is(err, redis.Nil) {
		return KeySessionSeatMap(sessionID, 0), nil
	}
	if err != nil {
		return "", err
	}

	return KeySessionSeatMap(sessionID, gen), nil
}

// InvalidateSession starts a new seat map generation for the session. Entries
// of older generations are never read again and expire on their own.
func (c *Cache) InvalidateSession(ctx context.Context, sessionID int64) error {
	if c == nil {
		return nil
	}

	key := KeySessionSeatMapGen(sessionID)
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, seatMapGenTTL)
	_, err := pipe.Exec(ctx)
	return err
}
