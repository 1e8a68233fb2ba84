package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/ewang0/redis-demo/internal/kv"
	"github.com/ewang0/redis-demo/internal/ratelimit"
	"github.com/ewang0/redis-demo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore is a kv.Store whose every operation reports the store as
// unreachable.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (int64, bool, error) {
	return 0, false, kv.ErrUnavailable
}
func (failingStore) Incr(context.Context, string) (int64, error) { return 0, kv.ErrUnavailable }
func (failingStore) GetSet(context.Context, string, int64) (int64, bool, error) {
	return 0, false, kv.ErrUnavailable
}
func (failingStore) CompareAndSwap(context.Context, string, int64, int64) (bool, error) {
	return false, kv.ErrUnavailable
}
func (failingStore) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, kv.ErrUnavailable
}
func (failingStore) TTL(context.Context, string) (time.Duration, error) {
	return 0, kv.ErrUnavailable
}
func (failingStore) ListPushFront(context.Context, string, int64) error { return kv.ErrUnavailable }
func (failingStore) ListRange(context.Context, string, int64, int64) ([]int64, error) {
	return nil, kv.ErrUnavailable
}
func (failingStore) ListTrim(context.Context, string, int64, int64) error { return kv.ErrUnavailable }

func TestConfigValidate(t *testing.T) {
	t.Run("accepts positive limit and window", func(t *testing.T) {
		cfg := ratelimit.Config{Limit: 10, Window: time.Minute}

		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		cfg := ratelimit.Config{Limit: 0, Window: time.Minute}

		assert.ErrorIs(t, cfg.Validate(), ratelimit.ErrInvalidConfig)
	})

	t.Run("rejects non-positive window", func(t *testing.T) {
		cfg := ratelimit.Config{Limit: 10, Window: 0}

		assert.ErrorIs(t, cfg.Validate(), ratelimit.ErrInvalidConfig)
	})
}

func TestNew(t *testing.T) {
	cfg := ratelimit.Config{Limit: 10, Window: time.Minute}

	t.Run("creates fixed window limiter", func(t *testing.T) {
		limiter, err := ratelimit.New(ratelimit.AlgorithmFixedWindow, store.NewMemoryKV(), cfg)

		require.NoError(t, err)
		assert.IsType(t, &ratelimit.FixedWindowLimiter{}, limiter)
	})

	t.Run("creates sliding log limiter", func(t *testing.T) {
		limiter, err := ratelimit.New(ratelimit.AlgorithmSlidingLog, store.NewMemoryKV(), cfg)

		require.NoError(t, err)
		assert.IsType(t, &ratelimit.SlidingLogLimiter{}, limiter)
	})

	t.Run("rejects unknown algorithm", func(t *testing.T) {
		_, err := ratelimit.New("leaky-bucket", store.NewMemoryKV(), cfg)

		assert.ErrorIs(t, err, ratelimit.ErrUnknownAlgorithm)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := ratelimit.New(ratelimit.AlgorithmFixedWindow, store.NewMemoryKV(), ratelimit.Config{})

		assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)
	})
}
