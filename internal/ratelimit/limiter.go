package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ewang0/redis-demo/internal/kv"
)

// Algorithm selects a rate limiting strategy.
type Algorithm string

const (
	// AlgorithmFixedWindow counts events against a single counter that
	// resets wholesale when its TTL expires.
	AlgorithmFixedWindow Algorithm = "fixed"
	// AlgorithmSlidingLog retains individual event timestamps and counts
	// those still inside the trailing window.
	AlgorithmSlidingLog Algorithm = "sliding"
)

var (
	ErrInvalidConfig    = errors.New("invalid rate limit config")
	ErrUnknownAlgorithm = errors.New("unknown rate limit algorithm")
)

// Config holds the window policy shared by both limiter algorithms.
type Config struct {
	// Limit is the maximum number of events permitted per window.
	Limit int64
	// Window is the window duration.
	Window time.Duration
	// KeyPrefix namespaces the limiter's keys in the store.
	KeyPrefix string
}

// Validate checks the window policy invariants.
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}

	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}

	return nil
}

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed reports whether the event may proceed.
	Allowed bool
	// Count is the number of events observed in the current window,
	// including the one being checked.
	Count int64
	// Remaining is the quota left in the window, never negative.
	Remaining int64
	// RetryAfter suggests how long a denied caller should wait. Zero when
	// Allowed.
	RetryAfter time.Duration
}

// Limiter decides whether an event from the given client identity may
// proceed. Identities are opaque; the limiter only requires them to be
// stable for the duration of a window.
type Limiter interface {
	Check(ctx context.Context, identity string) (*Decision, error)
}

// New creates the limiter selected by algorithm.
func New(algorithm Algorithm, store kv.Store, cfg Config) (Limiter, error) {
	switch algorithm {
	case AlgorithmFixedWindow:
		return NewFixedWindowLimiter(store, cfg)
	case AlgorithmSlidingLog:
		return NewSlidingLogLimiter(store, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}
