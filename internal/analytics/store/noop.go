package store

import (
	"context"

	"github.com/ewang0/redis-demo/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that only logs events.
// Used when no Postgres connection is configured.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveClick(_ context.Context, event *analytics.ClickEvent) error {
	n.logger.Info("click event received",
		zap.Int64("count", event.Count),
		zap.String("mode", event.Mode),
		zap.String("identity", event.Identity),
		zap.Time("clickedAt", event.ClickedAt),
	)

	return nil
}

func (n *Noop) SaveThrottle(_ context.Context, event *analytics.ThrottleEvent) error {
	n.logger.Info("throttle event received",
		zap.String("identity", event.Identity),
		zap.Int64("windowCount", event.WindowCount),
		zap.Int64("retryAfterSeconds", event.RetryAfter),
		zap.Time("throttledAt", event.ThrottledAt),
	)

	return nil
}
