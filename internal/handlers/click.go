package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ewang0/redis-demo/internal/admission"
	"github.com/ewang0/redis-demo/internal/analytics"
	"github.com/ewang0/redis-demo/internal/counter"
	"github.com/ewang0/redis-demo/internal/kv"
	"github.com/ewang0/redis-demo/internal/messaging"
	"go.uber.org/zap"
)

// ClickHandler handles click counter operations.
type ClickHandler struct {
	gate            *admission.Gate
	counter         *counter.Counter
	publishClick    messaging.Publish[analytics.ClickEvent]
	publishThrottle messaging.Publish[analytics.ThrottleEvent]
	logger          *zap.Logger
}

// NewClickHandler creates a new click handler.
func NewClickHandler(
	gate *admission.Gate,
	cnt *counter.Counter,
	publishClick messaging.Publish[analytics.ClickEvent],
	publishThrottle messaging.Publish[analytics.ThrottleEvent],
	logger *zap.Logger,
) *ClickHandler {
	return &ClickHandler{
		gate:            gate,
		counter:         cnt,
		publishClick:    publishClick,
		publishThrottle: publishThrottle,
		logger:          logger,
	}
}

type requestMetaKey struct{}

// RequestMeta holds per-request client metadata derived by the middleware.
type RequestMeta struct {
	Identity  string
	ClientIP  string
	UserAgent string
	RequestID string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// Click runs the admission gate for one click and applies the requested
// counter update when admitted.
func (h *ClickHandler) Click(ctx context.Context, req *ClickRequest) (*ClickResponse, error) {
	meta := RequestMetaFromContext(ctx)

	update, err := buildUpdate(req)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	result, err := h.gate.Evaluate(ctx, meta.Identity, update)
	if err != nil {
		return nil, h.mapError(err)
	}

	if result.Denied {
		return nil, h.deny(meta, result.WindowCount, result.RetryAfter)
	}

	event := &analytics.ClickEvent{
		Count:          result.Count,
		Mode:           string(update.Mode),
		WindowCount:    result.WindowCount,
		QuotaRemaining: result.QuotaRemaining,
		Identity:       meta.Identity,
		RequestID:      meta.RequestID,
		UserAgent:      meta.UserAgent,
		ClickedAt:      time.Now(),
	}

	if err := h.publishClick(event); err != nil {
		h.logger.Error("failed to publish click event",
			zap.String("requestId", meta.RequestID),
			zap.Error(err),
		)
	}

	resp := &ClickResponse{}
	resp.Body.Count = result.Count
	resp.Body.UserClicks = result.WindowCount
	resp.Body.ClicksRemaining = result.QuotaRemaining

	return resp, nil
}

// Count returns the current global click count.
func (h *ClickHandler) Count(ctx context.Context, _ *struct{}) (*CountResponse, error) {
	count, err := h.counter.Read(ctx)
	if err != nil {
		return nil, h.mapError(err)
	}

	resp := &CountResponse{}
	resp.Body.Count = count

	return resp, nil
}

func (h *ClickHandler) deny(meta RequestMeta, windowCount int64, retryAfter time.Duration) error {
	secs := int64(retryAfter / time.Second)
	if secs < 1 {
		secs = 1
	}

	event := &analytics.ThrottleEvent{
		Identity:    meta.Identity,
		RequestID:   meta.RequestID,
		WindowCount: windowCount,
		RetryAfter:  secs,
		ThrottledAt: time.Now(),
	}

	if err := h.publishThrottle(event); err != nil {
		h.logger.Error("failed to publish throttle event",
			zap.String("requestId", meta.RequestID),
			zap.Error(err),
		)
	}

	h.logger.Warn("click rate limited",
		zap.String("identity", meta.Identity),
		zap.Int64("windowCount", windowCount),
		zap.Int64("retryAfterSeconds", secs),
	)

	return &RateLimitedError{
		Reason:     "Too many requests",
		Message:    fmt.Sprintf("rate limit exceeded, retry after %d seconds", secs),
		RetryAfter: secs,
	}
}

// mapError translates the admission taxonomy to HTTP errors. Store
// failures never leak internal detail to the client.
func (h *ClickHandler) mapError(err error) error {
	switch {
	case errors.Is(err, admission.ErrInvalidUpdate):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, counter.ErrInvalidValue):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, counter.ErrConflict):
		return huma.Error409Conflict("counter was updated concurrently, re-read and retry")
	case errors.Is(err, kv.ErrUnavailable):
		h.logger.Error("store unavailable", zap.Error(err))

		return huma.Error500InternalServerError("service temporarily unavailable")
	default:
		h.logger.Error("click request failed", zap.Error(err))

		return huma.Error500InternalServerError("internal server error")
	}
}

func buildUpdate(req *ClickRequest) (admission.Update, error) {
	mode := admission.Mode(req.Body.Mode)
	if req.Body.Mode == "" {
		mode = admission.ModeIncrement
	}

	update := admission.Update{Mode: mode, ExpectedPrevious: req.Body.ExpectedPrevious}

	switch mode {
	case admission.ModeIncrement:
		if req.Body.Value != nil {
			return update, errors.New("value is only valid with absolute mode")
		}
	case admission.ModeAbsolute:
		if req.Body.Value == nil {
			return update, errors.New("absolute mode requires a value")
		}

		update.Value = *req.Body.Value
	}

	return update, nil
}
