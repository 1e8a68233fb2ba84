package kv

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backing store could not be reached.
// Implementations wrap every transport failure with this sentinel so
// callers can distinguish infrastructure faults from quota decisions.
var ErrUnavailable = errors.New("kv store unavailable")

// ErrWrongType indicates a counter operation hit a key holding a list,
// or a list operation hit a key holding a counter. Mirrors Redis
// WRONGTYPE replies so both implementations fail the same way on a key
// collision.
var ErrWrongType = errors.New("wrong value type for key")

// TTL sentinel values, matching Redis TTL command semantics.
const (
	// TTLNone means the key exists but has no expiration set.
	TTLNone = -1 * time.Second
	// TTLMissing means the key does not exist.
	TTLMissing = -2 * time.Second
)

// Store is the atomic key-value contract shared by the rate limiters and
// the global counter. Each operation is individually atomic against the
// store; multi-step sequences built on top of it are not.
type Store interface {
	// Get returns the integer value at key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value int64, ok bool, err error)

	// Incr atomically increments the integer at key, creating it at zero
	// first if absent, and returns the post-increment value.
	Incr(ctx context.Context, key string) (int64, error)

	// GetSet atomically replaces the value at key and returns the previous
	// value. existed is false when the key was absent before the write.
	GetSet(ctx context.Context, key string, value int64) (previous int64, existed bool, err error)

	// CompareAndSwap writes value only if the current value equals expected.
	// An absent key is treated as holding 0, so an expected value of 0 can
	// claim a key that was never written. Returns whether the swap happened.
	CompareAndSwap(ctx context.Context, key string, expected, value int64) (swapped bool, err error)

	// Expire sets a TTL on key. Returns false (without error) if the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// TTL returns the remaining lifetime of key, TTLNone when the key has
	// no expiration, or TTLMissing when the key is absent.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// ListPushFront prepends value to the list at key, creating it if absent.
	ListPushFront(ctx context.Context, key string, value int64) error

	// ListRange returns the list elements between start and stop inclusive.
	// Negative indexes count from the end, Redis-style.
	ListRange(ctx context.Context, key string, start, stop int64) ([]int64, error)

	// ListTrim discards list elements outside the start..stop range.
	ListTrim(ctx context.Context, key string, start, stop int64) error
}
