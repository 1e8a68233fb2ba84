// Package admission composes a rate limiter and the global counter into a
// single request-level decision.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ewang0/redis-demo/internal/counter"
	"github.com/ewang0/redis-demo/internal/ratelimit"
	"go.uber.org/zap"
)

var (
	// ErrInvalidUpdate reports a malformed update request. The store is
	// never touched for these.
	ErrInvalidUpdate = errors.New("invalid update request")
	// ErrEmptyIdentity reports a missing client identity.
	ErrEmptyIdentity = fmt.Errorf("%w: empty client identity", ErrInvalidUpdate)
)

// Mode selects how an admitted request updates the counter.
type Mode string

const (
	// ModeIncrement adds 1 to the counter.
	ModeIncrement Mode = "increment"
	// ModeAbsolute overwrites the counter with Update.Value.
	ModeAbsolute Mode = "absolute"
)

// Update describes the counter mutation a caller is requesting.
type Update struct {
	Mode  Mode
	Value int64
	// ExpectedPrevious, when set on an absolute update, turns the write
	// into a compare-and-swap that fails with counter.ErrConflict on
	// mismatch instead of last-write-wins.
	ExpectedPrevious *int64
}

// Result is the gate's decision for one request.
type Result struct {
	// Denied reports that the limiter rejected the request. Nothing was
	// written to the counter.
	Denied bool
	// Count is the counter value after the update. Unset when Denied.
	Count int64
	// WindowCount is the number of events the limiter observed for this
	// identity in the current window.
	WindowCount int64
	// QuotaRemaining is the quota left in the window.
	QuotaRemaining int64
	// RetryAfter suggests how long a denied caller should wait.
	RetryAfter time.Duration
}

// Gate runs the admission check and, only if it passes, applies the
// requested counter update. The quota check and the counter write are not
// one transaction: a crash in between leaves the limiter's bookkeeping
// ahead of the counter. The ordering is always check-then-mutate.
type Gate struct {
	limiter  ratelimit.Limiter
	counter  *counter.Counter
	failOpen bool
	logger   *zap.Logger
}

// NewGate creates an admission gate. When failOpen is true, a limiter
// store failure admits the request (with a warning and no quota
// telemetry) instead of surfacing the failure; counter store failures
// always propagate.
func NewGate(limiter ratelimit.Limiter, cnt *counter.Counter, failOpen bool, logger *zap.Logger) *Gate {
	return &Gate{
		limiter:  limiter,
		counter:  cnt,
		failOpen: failOpen,
		logger:   logger,
	}
}

// Evaluate decides whether the update from identity may proceed and
// applies it if so.
func (g *Gate) Evaluate(ctx context.Context, identity string, update Update) (*Result, error) {
	if identity == "" {
		return nil, ErrEmptyIdentity
	}

	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	decision, err := g.limiter.Check(ctx, identity)
	if err != nil {
		if !g.failOpen {
			return nil, err
		}

		g.logger.Warn("rate limiter unavailable, admitting request",
			zap.String("identity", identity),
			zap.Error(err),
		)

		decision = &ratelimit.Decision{Allowed: true}
	}

	if !decision.Allowed {
		return &Result{
			Denied:      true,
			WindowCount: decision.Count,
			RetryAfter:  decision.RetryAfter,
		}, nil
	}

	newCount, err := g.apply(ctx, update)
	if err != nil {
		return nil, err
	}

	return &Result{
		Count:          newCount,
		WindowCount:    decision.Count,
		QuotaRemaining: decision.Remaining,
	}, nil
}

func (g *Gate) apply(ctx context.Context, update Update) (int64, error) {
	switch update.Mode {
	case ModeIncrement:
		return g.counter.Increment(ctx)
	case ModeAbsolute:
		if update.ExpectedPrevious != nil {
			return g.counter.SetGuarded(ctx, *update.ExpectedPrevious, update.Value)
		}

		return g.counter.Set(ctx, update.Value)
	default:
		// validateUpdate rejects unknown modes before we get here.
		return 0, fmt.Errorf("%w: mode %q", ErrInvalidUpdate, update.Mode)
	}
}

func validateUpdate(update Update) error {
	switch update.Mode {
	case ModeIncrement:
		return nil
	case ModeAbsolute:
		if update.Value < 0 {
			return fmt.Errorf("%w: absolute value %d is negative", ErrInvalidUpdate, update.Value)
		}

		if update.ExpectedPrevious != nil && *update.ExpectedPrevious < 0 {
			return fmt.Errorf("%w: expected previous value %d is negative",
				ErrInvalidUpdate, *update.ExpectedPrevious)
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidUpdate, update.Mode)
	}
}
