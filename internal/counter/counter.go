// Package counter owns the durable, globally shared click counter.
package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/ewang0/redis-demo/internal/kv"
)

// DefaultKey is the store key of the one logical counter per deployment.
const DefaultKey = "global:clickCount"

var (
	// ErrConflict reports that a guarded set observed a different previous
	// value than the caller expected.
	ErrConflict = errors.New("conflicting counter update")
	// ErrInvalidValue reports a negative target value. Rejected before the
	// store is touched.
	ErrInvalidValue = errors.New("counter value must be non-negative")
)

// Counter is an explicitly constructed handle on the shared counter.
// It holds no in-process state; every operation goes to the store, so
// multiple stateless replicas can share one counter.
type Counter struct {
	store kv.Store
	key   string
}

// New creates a counter handle bound to key. An empty key uses DefaultKey.
func New(store kv.Store, key string) *Counter {
	if key == "" {
		key = DefaultKey
	}

	return &Counter{store: store, key: key}
}

// Read returns the current value, 0 when nothing has ever been stored.
func (c *Counter) Read(ctx context.Context) (int64, error) {
	value, _, err := c.store.Get(ctx, c.key)
	if err != nil {
		return 0, err
	}

	return value, nil
}

// Increment atomically adds 1 and returns the new value.
func (c *Counter) Increment(ctx context.Context) (int64, error) {
	return c.store.Incr(ctx, c.key)
}

// Set unconditionally overwrites the counter and returns the new value.
// There is no compare-and-swap guard: when two callers race, the later
// physical write wins, and a concurrent Increment can be silently lost.
// Callers who care use SetGuarded.
func (c *Counter) Set(ctx context.Context, value int64) (int64, error) {
	if value < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidValue, value)
	}

	if _, _, err := c.store.GetSet(ctx, c.key, value); err != nil {
		return 0, err
	}

	return value, nil
}

// SetGuarded overwrites the counter only if its current value equals
// expected, failing with ErrConflict otherwise. An absent counter is
// treated as 0 for the comparison.
func (c *Counter) SetGuarded(ctx context.Context, expected, value int64) (int64, error) {
	if value < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidValue, value)
	}

	swapped, err := c.store.CompareAndSwap(ctx, c.key, expected, value)
	if err != nil {
		return 0, err
	}

	if !swapped {
		return 0, ErrConflict
	}

	return value, nil
}
