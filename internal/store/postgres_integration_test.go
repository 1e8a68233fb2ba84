//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ewang0/redis-demo/internal/analytics"
	"github.com/ewang0/redis-demo/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestPostgresAnalyticsIntegration(t *testing.T) {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Skipf("Postgres not available: %v", err)
	}

	s := store.NewPostgresAnalytics(pool)

	t.Run("save click event", func(t *testing.T) {
		err := s.SaveClick(ctx, &analytics.ClickEvent{
			Count:          1,
			Mode:           "increment",
			WindowCount:    1,
			QuotaRemaining: 9,
			Identity:       "test-identity",
			RequestID:      "req-1",
			UserAgent:      "integration-test",
			ClickedAt:      time.Now(),
		})

		require.NoError(t, err)
	})

	t.Run("save throttle event", func(t *testing.T) {
		err := s.SaveThrottle(ctx, &analytics.ThrottleEvent{
			Identity:    "test-identity",
			RequestID:   "req-2",
			WindowCount: 11,
			RetryAfter:  42,
			ThrottledAt: time.Now(),
		})

		require.NoError(t, err)
	})
}
