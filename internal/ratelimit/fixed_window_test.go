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

func newFixedLimiter(t *testing.T, limit int64, window time.Duration) *ratelimit.FixedWindowLimiter {
	t.Helper()

	limiter, err := ratelimit.NewFixedWindowLimiter(store.NewMemoryKV(), ratelimit.Config{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "ratelimit:fixed:",
	})
	require.NoError(t, err)

	return limiter
}

func TestFixedWindowLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows exactly limit events in a window", func(t *testing.T) {
		limiter := newFixedLimiter(t, 10, time.Minute)

		for i := int64(1); i <= 10; i++ {
			decision, err := limiter.Check(ctx, "A")

			require.NoError(t, err)
			assert.True(t, decision.Allowed, "event %d should be allowed", i)
			assert.Equal(t, i, decision.Count)
			assert.Equal(t, 10-i, decision.Remaining)
		}

		// The limit+1-th event is the first denial.
		decision, err := limiter.Check(ctx, "A")

		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(11), decision.Count)
		assert.Zero(t, decision.Remaining)
		assert.Positive(t, decision.RetryAfter)
		assert.LessOrEqual(t, decision.RetryAfter, time.Minute)
	})

	t.Run("tracks identities independently", func(t *testing.T) {
		limiter := newFixedLimiter(t, 2, time.Minute)

		for range 2 {
			decision, err := limiter.Check(ctx, "A")
			require.NoError(t, err)
			assert.True(t, decision.Allowed)
		}

		decision, err := limiter.Check(ctx, "A")
		require.NoError(t, err)
		assert.False(t, decision.Allowed, "A should be over quota")

		decision, err = limiter.Check(ctx, "B")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "B should be unaffected")
	})

	t.Run("window resets after expiry", func(t *testing.T) {
		limiter := newFixedLimiter(t, 2, 50*time.Millisecond)

		for range 2 {
			decision, err := limiter.Check(ctx, "A")
			require.NoError(t, err)
			assert.True(t, decision.Allowed)
		}

		decision, err := limiter.Check(ctx, "A")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)

		time.Sleep(60 * time.Millisecond)

		decision, err = limiter.Check(ctx, "A")

		require.NoError(t, err)
		assert.True(t, decision.Allowed, "fresh window should admit again")
		assert.Equal(t, int64(1), decision.Count, "count should restart")
	})

	t.Run("denials keep counting within the window", func(t *testing.T) {
		limiter := newFixedLimiter(t, 1, time.Minute)

		decision, err := limiter.Check(ctx, "A")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)

		for i := int64(2); i <= 4; i++ {
			decision, err = limiter.Check(ctx, "A")

			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, i, decision.Count)
		}
	})

	t.Run("propagates store failure", func(t *testing.T) {
		limiter, err := ratelimit.NewFixedWindowLimiter(failingStore{}, ratelimit.Config{
			Limit:  10,
			Window: time.Minute,
		})
		require.NoError(t, err)

		_, err = limiter.Check(ctx, "A")

		assert.ErrorIs(t, err, kv.ErrUnavailable)
	})
}
