package ratelimit

import (
	"context"
	"time"

	"github.com/ewang0/redis-demo/internal/kv"
)

// SlidingLogLimiter keeps a per-identity log of event timestamps and
// counts those inside the trailing window at check time. This gives exact
// sliding-window semantics at the cost of O(events-in-window) storage and
// work per check.
//
// The event is pushed onto the log before the decision is made, so a
// denied event still counts toward future windows. That stops a client
// from probing the limiter for free, at the price of a throttled client
// only recovering once the window naturally empties.
type SlidingLogLimiter struct {
	store kv.Store
	cfg   Config
	now   func() time.Time
}

// NewSlidingLogLimiter creates a sliding-window-log rate limiter.
func NewSlidingLogLimiter(store kv.Store, cfg Config) (*SlidingLogLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &SlidingLogLimiter{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}, nil
}

func (l *SlidingLogLimiter) Check(ctx context.Context, identity string) (*Decision, error) {
	key := l.cfg.KeyPrefix + identity
	now := l.now().UnixMilli()
	windowMs := l.cfg.Window.Milliseconds()

	if err := l.store.ListPushFront(ctx, key, now); err != nil {
		return nil, err
	}

	// Refresh the TTL past the window so an abandoned log is reclaimed
	// even if the client never returns.
	if _, err := l.store.Expire(ctx, key, l.cfg.Window*3/2); err != nil {
		return nil, err
	}

	log, err := l.store.ListRange(ctx, key, 0, -1)
	if err != nil {
		return nil, err
	}

	// Entries are newest-first, so the in-window entries form a prefix.
	valid := log
	for i, ts := range log {
		if now-ts >= windowMs {
			valid = log[:i]

			break
		}
	}

	// Drop stale entries. This is garbage collection only: the valid set
	// is recomputed from scratch on every check regardless.
	if len(valid) < len(log) {
		if err := l.store.ListTrim(ctx, key, 0, int64(len(valid))-1); err != nil {
			return nil, err
		}
	}

	count := int64(len(valid))

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
		oldest := valid[len(valid)-1]
		decision.RetryAfter = ceilSeconds(time.Duration(oldest+windowMs-now) * time.Millisecond)
	}

	return decision, nil
}
