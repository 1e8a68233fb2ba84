package store

import (
	"context"

	"github.com/ewang0/redis-demo/internal/analytics"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAnalytics is a PostgreSQL implementation of analytics.Store.
type PostgresAnalytics struct {
	pool *pgxpool.Pool
}

// NewPostgresAnalytics creates a new PostgreSQL-backed analytics store.
func NewPostgresAnalytics(pool *pgxpool.Pool) *PostgresAnalytics {
	return &PostgresAnalytics{pool: pool}
}

func (p *PostgresAnalytics) SaveClick(ctx context.Context, event *analytics.ClickEvent) error {
	query := `
		INSERT INTO click_events (count, mode, window_count, quota_remaining, identity, request_id, user_agent, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.pool.Exec(ctx, query,
		event.Count,
		event.Mode,
		event.WindowCount,
		event.QuotaRemaining,
		event.Identity,
		nullable(event.RequestID),
		nullable(event.UserAgent),
		event.ClickedAt,
	)

	return err
}

func (p *PostgresAnalytics) SaveThrottle(ctx context.Context, event *analytics.ThrottleEvent) error {
	query := `
		INSERT INTO throttle_events (identity, request_id, window_count, retry_after_seconds, throttled_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := p.pool.Exec(ctx, query,
		event.Identity,
		nullable(event.RequestID),
		event.WindowCount,
		event.RetryAfter,
		event.ThrottledAt,
	)

	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ analytics.Store = (*PostgresAnalytics)(nil)
