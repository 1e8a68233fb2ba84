package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ewang0/redis-demo/internal/kv"
)

// entry is a single keyed value with optional expiration. A key holds
// either an integer or a list, mirroring Redis value types.
type entry struct {
	value     int64
	list      []int64
	isList    bool
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryKV is an in-memory implementation of kv.Store with lazy TTL
// expiry. It backs unit tests and Redis-less local runs.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewMemoryKV creates a new in-memory atomic store adapter.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]*entry)}
}

// get returns the live entry for key, dropping it first if expired.
// Callers must hold mu.
func (m *MemoryKV) get(key string) (*entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}

	if e.expired(time.Now()) {
		delete(m.entries, key)

		return nil, false
	}

	return e, true
}

func (m *MemoryKV) Get(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		return 0, false, nil
	}

	if e.isList {
		return 0, false, wrongType(key)
	}

	return e.value, true, nil
}

func (m *MemoryKV) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}

	if e.isList {
		return 0, wrongType(key)
	}

	e.value++

	return e.value, nil
}

func (m *MemoryKV) GetSet(_ context.Context, key string, value int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		m.entries[key] = &entry{value: value}

		return 0, false, nil
	}

	if e.isList {
		return 0, false, wrongType(key)
	}

	prev := e.value
	e.value = value

	return prev, true, nil
}

func (m *MemoryKV) CompareAndSwap(_ context.Context, key string, expected, value int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		// Absent keys compare as 0.
		if expected != 0 {
			return false, nil
		}

		m.entries[key] = &entry{value: value}

		return true, nil
	}

	if e.isList {
		return false, wrongType(key)
	}

	if e.value != expected {
		return false, nil
	}

	e.value = value

	return true, nil
}

func (m *MemoryKV) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		return false, nil
	}

	e.expiresAt = time.Now().Add(ttl)

	return true, nil
}

func (m *MemoryKV) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		return kv.TTLMissing, nil
	}

	if e.expiresAt.IsZero() {
		return kv.TTLNone, nil
	}

	return time.Until(e.expiresAt), nil
}

func (m *MemoryKV) ListPushFront(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		e = &entry{isList: true}
		m.entries[key] = e
	}

	if !e.isList {
		return wrongType(key)
	}

	e.list = append([]int64{value}, e.list...)

	return nil
}

func (m *MemoryKV) ListRange(_ context.Context, key string, start, stop int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		return nil, nil
	}

	if !e.isList {
		return nil, wrongType(key)
	}

	from, to, empty := clampRange(start, stop, int64(len(e.list)))
	if empty {
		return nil, nil
	}

	out := make([]int64, to-from+1)
	copy(out, e.list[from:to+1])

	return out, nil
}

func (m *MemoryKV) ListTrim(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		return nil
	}

	if !e.isList {
		return wrongType(key)
	}

	from, to, empty := clampRange(start, stop, int64(len(e.list)))
	if empty {
		delete(m.entries, key)

		return nil
	}

	e.list = e.list[from : to+1]

	return nil
}

func wrongType(key string) error {
	return fmt.Errorf("%w: %s", kv.ErrWrongType, key)
}

// clampRange resolves Redis-style inclusive indexes (negative counts from
// the end) against a list of length n.
func clampRange(start, stop, n int64) (from, to int64, empty bool) {
	if start < 0 {
		start += n
	}

	if stop < 0 {
		stop += n
	}

	if start < 0 {
		start = 0
	}

	if stop >= n {
		stop = n - 1
	}

	if n == 0 || start > stop || start >= n {
		return 0, 0, true
	}

	return start, stop, false
}

// Compile-time check.
var _ kv.Store = (*MemoryKV)(nil)
