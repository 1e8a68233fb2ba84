package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ewang0/redis-demo/internal/admission"
	"github.com/ewang0/redis-demo/internal/analytics"
	"github.com/ewang0/redis-demo/internal/counter"
	"github.com/ewang0/redis-demo/internal/handlers"
	"github.com/ewang0/redis-demo/internal/messaging"
	"github.com/ewang0/redis-demo/internal/ratelimit"
	"github.com/ewang0/redis-demo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testIdentity = "client-a"

// noopPublish returns a publish function that always succeeds.
func noopPublish[T any]() messaging.Publish[T] {
	return func(_ *T) error { return nil }
}

// errorPublish returns a publish function that always fails.
func errorPublish[T any](err error) messaging.Publish[T] {
	return func(_ *T) error { return err }
}

func newTestHandler(t *testing.T, limit int64) *handlers.ClickHandler {
	t.Helper()

	kvStore := store.NewMemoryKV()

	limiter, err := ratelimit.NewFixedWindowLimiter(kvStore, ratelimit.Config{
		Limit:     limit,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:fixed:",
	})
	require.NoError(t, err)

	cnt := counter.New(kvStore, "")
	gate := admission.NewGate(limiter, cnt, false, zap.NewNop())

	return handlers.NewClickHandler(gate, cnt,
		noopPublish[analytics.ClickEvent](),
		noopPublish[analytics.ThrottleEvent](),
		zap.NewNop(),
	)
}

func testCtx() context.Context {
	return handlers.ContextWithRequestMeta(context.Background(), handlers.RequestMeta{
		Identity:  testIdentity,
		ClientIP:  "192.168.1.1",
		UserAgent: "TestAgent/1.0",
		RequestID: "req-1",
	})
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var statusErr huma.StatusError
	require.ErrorAs(t, err, &statusErr)

	return statusErr.GetStatus()
}

func TestClick(t *testing.T) {
	t.Run("default mode increments", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		req := &handlers.ClickRequest{}

		resp, err := handler.Click(testCtx(), req)

		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Body.Count)
		assert.Equal(t, int64(1), resp.Body.UserClicks)
		assert.Equal(t, int64(9), resp.Body.ClicksRemaining)
	})

	t.Run("absolute mode sets then increments", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		value := int64(42)
		req := &handlers.ClickRequest{}
		req.Body.Mode = "absolute"
		req.Body.Value = &value

		resp, err := handler.Click(testCtx(), req)

		require.NoError(t, err)
		assert.Equal(t, int64(42), resp.Body.Count)

		resp, err = handler.Click(testCtx(), &handlers.ClickRequest{})

		require.NoError(t, err)
		assert.Equal(t, int64(43), resp.Body.Count)
	})

	t.Run("returns 429 when over quota", func(t *testing.T) {
		handler := newTestHandler(t, 2)

		for range 2 {
			_, err := handler.Click(testCtx(), &handlers.ClickRequest{})
			require.NoError(t, err)
		}

		resp, err := handler.Click(testCtx(), &handlers.ClickRequest{})

		assert.Nil(t, resp)
		assert.Equal(t, 429, statusOf(t, err))

		var denied *handlers.RateLimitedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, "Too many requests", denied.Reason)
		assert.NotEmpty(t, denied.Message)
		assert.Equal(t, int64(60), denied.RetryAfter)
		assert.Equal(t, "60", denied.GetHeaders().Get("Retry-After"))
	})

	t.Run("429 body keeps the error and retryAfter fields", func(t *testing.T) {
		handler := newTestHandler(t, 1)

		_, err := handler.Click(testCtx(), &handlers.ClickRequest{})
		require.NoError(t, err)

		_, err = handler.Click(testCtx(), &handlers.ClickRequest{})

		var denied *handlers.RateLimitedError
		require.ErrorAs(t, err, &denied)

		payload, merr := json.Marshal(denied)
		require.NoError(t, merr)

		var body map[string]any
		require.NoError(t, json.Unmarshal(payload, &body))
		assert.Contains(t, body, "error")
		assert.Contains(t, body, "message")
		assert.Contains(t, body, "retryAfter")
	})

	t.Run("absolute mode requires a value", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		req := &handlers.ClickRequest{}
		req.Body.Mode = "absolute"

		resp, err := handler.Click(testCtx(), req)

		assert.Nil(t, resp)
		assert.Equal(t, 400, statusOf(t, err))
	})

	t.Run("increment mode rejects a value", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		value := int64(5)
		req := &handlers.ClickRequest{}
		req.Body.Value = &value

		_, err := handler.Click(testCtx(), req)

		assert.Equal(t, 400, statusOf(t, err))
	})

	t.Run("negative absolute value returns 400", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		value := int64(-5)
		req := &handlers.ClickRequest{}
		req.Body.Mode = "absolute"
		req.Body.Value = &value

		_, err := handler.Click(testCtx(), req)

		assert.Equal(t, 400, statusOf(t, err))
	})

	t.Run("stale guarded set returns 409", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		value := int64(10)
		req := &handlers.ClickRequest{}
		req.Body.Mode = "absolute"
		req.Body.Value = &value

		_, err := handler.Click(testCtx(), req)
		require.NoError(t, err)

		stale := int64(5)
		newValue := int64(20)
		req = &handlers.ClickRequest{}
		req.Body.Mode = "absolute"
		req.Body.Value = &newValue
		req.Body.ExpectedPrevious = &stale

		_, err = handler.Click(testCtx(), req)

		assert.Equal(t, 409, statusOf(t, err))
	})

	t.Run("missing identity returns 400", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		_, err := handler.Click(context.Background(), &handlers.ClickRequest{})

		assert.Equal(t, 400, statusOf(t, err))
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		kvStore := store.NewMemoryKV()

		limiter, err := ratelimit.NewFixedWindowLimiter(kvStore, ratelimit.Config{
			Limit:     10,
			Window:    time.Minute,
			KeyPrefix: "ratelimit:fixed:",
		})
		require.NoError(t, err)

		cnt := counter.New(kvStore, "")
		gate := admission.NewGate(limiter, cnt, false, zap.NewNop())

		handler := handlers.NewClickHandler(gate, cnt,
			errorPublish[analytics.ClickEvent](errors.New("publish error")),
			errorPublish[analytics.ThrottleEvent](errors.New("publish error")),
			zap.NewNop(),
		)

		resp, err := handler.Click(testCtx(), &handlers.ClickRequest{})

		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Body.Count)
	})
}

func TestCount(t *testing.T) {
	t.Run("starts at zero", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		resp, err := handler.Count(context.Background(), nil)

		require.NoError(t, err)
		assert.Zero(t, resp.Body.Count)
	})

	t.Run("reflects clicks without consuming quota", func(t *testing.T) {
		handler := newTestHandler(t, 10)

		for range 3 {
			_, err := handler.Click(testCtx(), &handlers.ClickRequest{})
			require.NoError(t, err)
		}

		resp, err := handler.Count(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.Body.Count)
	})
}
