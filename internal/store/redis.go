package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ewang0/redis-demo/internal/kv"
	"github.com/redis/go-redis/v9"
)

// casScript swaps the value at KEYS[1] from ARGV[1] to ARGV[2] atomically.
// An absent key is treated as holding "0".
var casScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
	current = "0"
end
if current == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// RedisKV is the Redis implementation of kv.Store.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates a Redis-backed atomic store adapter.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (int64, bool, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, unavailable(err)
	}

	return val, true, nil
}

func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	return count, nil
}

func (r *RedisKV) GetSet(ctx context.Context, key string, value int64) (int64, bool, error) {
	prev, err := r.client.GetSet(ctx, key, value).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, unavailable(err)
	}

	return prev, true, nil
}

func (r *RedisKV) CompareAndSwap(ctx context.Context, key string, expected, value int64) (bool, error) {
	res, err := casScript.Run(ctx, r.client, []string{key},
		strconv.FormatInt(expected, 10), strconv.FormatInt(value, 10),
	).Int64()
	if err != nil {
		return false, unavailable(err)
	}

	return res == 1, nil
}

func (r *RedisKV) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}

	return set, nil
}

func (r *RedisKV) TTL(ctx context.Context, key string) (time.Duration, error) {
	// go-redis maps the -1/-2 integer replies to -1s/-2s, which already
	// match kv.TTLNone and kv.TTLMissing.
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	return ttl, nil
}

func (r *RedisKV) ListPushFront(ctx context.Context, key string, value int64) error {
	if err := r.client.LPush(ctx, key, value).Err(); err != nil {
		return unavailable(err)
	}

	return nil
}

func (r *RedisKV) ListRange(ctx context.Context, key string, start, stop int64) ([]int64, error) {
	raw, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	values := make([]int64, 0, len(raw))

	for _, s := range raw {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-integer list entry %q at %s: %w", s, key, err)
		}

		values = append(values, v)
	}

	return values, nil
}

func (r *RedisKV) ListTrim(ctx context.Context, key string, start, stop int64) error {
	if err := r.client.LTrim(ctx, key, start, stop).Err(); err != nil {
		return unavailable(err)
	}

	return nil
}

func unavailable(err error) error {
	// WRONGTYPE replies are a caller bug, not an infrastructure fault.
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return fmt.Errorf("%w: %v", kv.ErrWrongType, err)
	}

	return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
}

// Compile-time check.
var _ kv.Store = (*RedisKV)(nil)
