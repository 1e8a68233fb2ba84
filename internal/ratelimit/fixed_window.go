package ratelimit

import (
	"context"
	"time"

	"github.com/ewang0/redis-demo/internal/kv"
)

// FixedWindowLimiter counts events against a single per-identity counter
// whose TTL defines the window. Windows are rolling: each identity's
// window starts at its first event after the previous one expired, not at
// a calendar boundary.
type FixedWindowLimiter struct {
	store kv.Store
	cfg   Config
}

// NewFixedWindowLimiter creates a fixed-window rate limiter.
func NewFixedWindowLimiter(store kv.Store, cfg Config) (*FixedWindowLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &FixedWindowLimiter{store: store, cfg: cfg}, nil
}

func (l *FixedWindowLimiter) Check(ctx context.Context, identity string) (*Decision, error) {
	key := l.cfg.KeyPrefix + identity

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return nil, err
	}

	// The first event of a window establishes its lifetime. A crash
	// between the increment and this expire leaves a key with no TTL,
	// permanently exhausting the identity's quota until cleared
	// externally. Accepted risk; the increment and expire are not one
	// atomic unit on this store contract.
	if count == 1 {
		if _, err := l.store.Expire(ctx, key, l.cfg.Window); err != nil {
			return nil, err
		}
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return nil, err
	}

	if ttl < 0 {
		ttl = l.cfg.Window
	}

	remaining := l.cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	decision := &Decision{
		Allowed:   count <= l.cfg.Limit,
		Count:     count,
		Remaining: remaining,
	}

	if !decision.Allowed {
		decision.RetryAfter = ceilSeconds(ttl)
	}

	return decision, nil
}

// ceilSeconds rounds d up to a whole second so a denied caller never
// retries before the window actually ends.
func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}

	secs := (d + time.Second - 1) / time.Second

	return secs * time.Second
}
