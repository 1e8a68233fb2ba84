package ratelimit

import "time"

// SetNow overrides the limiter's clock for deterministic tests.
func (l *SlidingLogLimiter) SetNow(now func() time.Time) {
	l.now = now
}
