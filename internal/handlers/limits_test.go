package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/speedbump/internal/analytics"
	"github.com/serroba/speedbump/internal/clock"
	"github.com/serroba/speedbump/internal/handlers"
	"github.com/serroba/speedbump/internal/messaging"
	"github.com/serroba/speedbump/internal/ratelimit"
	"github.com/serroba/speedbump/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errMock = errors.New("mock error")

type failingLimiter struct{}

func (failingLimiter) Check(_ context.Context, _ string) (ratelimit.Result[ratelimit.FixedWindowMetadata], error) {
	return ratelimit.Result[ratelimit.FixedWindowMetadata]{}, errMock
}

func (failingLimiter) Reset(_ context.Context, _ string) error {
	return errMock
}

type keyRecordingLimiter struct {
	keys []string
}

func (k *keyRecordingLimiter) Check(_ context.Context, key string) (ratelimit.Result[ratelimit.FixedWindowMetadata], error) {
	k.keys = append(k.keys, key)

	return ratelimit.Allow[ratelimit.FixedWindowMetadata](), nil
}

func (k *keyRecordingLimiter) Reset(_ context.Context, key string) error {
	k.keys = append(k.keys, key)

	return nil
}

type recordingPublisher struct {
	events []*analytics.DecisionEvent
	err    error
}

func (r *recordingPublisher) publish(_ context.Context, event *analytics.DecisionEvent) error {
	r.events = append(r.events, event)

	return r.err
}

func newTestLimiter(c clock.Clock, limit uint32) *ratelimit.FixedWindowLimiter {
	return ratelimit.New(
		store.NewMemoryStore[ratelimit.FixedWindowState](),
		ratelimit.NewFixedWindow(10*time.Second, limit, ratelimit.WithClock(c)),
	)
}

func newTestHandler(
	limiter handlers.Limiter, publish messaging.Publish[analytics.DecisionEvent],
) *handlers.LimitsHandler {
	return handlers.NewLimitsHandler(limiter, publish, zap.NewNop())
}

func TestCheckLimit(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("allows until the limit then denies with retry-after", func(t *testing.T) {
		c := clock.NewMock(start)
		handler := newTestHandler(newTestLimiter(c, 2), nil)
		req := &handlers.CheckLimitRequest{Key: "client-a"}

		for range 2 {
			resp, err := handler.CheckLimit(context.Background(), req)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.True(t, resp.Body.Allowed)
			assert.Empty(t, resp.RetryAfter)
		}

		c.Advance(2500 * time.Millisecond)

		resp, err := handler.CheckLimit(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.Status)
		assert.False(t, resp.Body.Allowed)
		assert.Equal(t, int64(7500), resp.Body.TillNextWindowMs)
		assert.Equal(t, "8", resp.RetryAfter)
	})

	t.Run("keys are independent", func(t *testing.T) {
		handler := newTestHandler(newTestLimiter(clock.NewMock(start), 1), nil)

		first, err := handler.CheckLimit(context.Background(), &handlers.CheckLimitRequest{Key: "a"})
		require.NoError(t, err)

		other, err := handler.CheckLimit(context.Background(), &handlers.CheckLimitRequest{Key: "b"})
		require.NoError(t, err)

		assert.True(t, first.Body.Allowed)
		assert.True(t, other.Body.Allowed)
	})

	t.Run("returns 500 when the limiter fails", func(t *testing.T) {
		handler := newTestHandler(failingLimiter{}, nil)

		_, err := handler.CheckLimit(context.Background(), &handlers.CheckLimitRequest{Key: "a"})

		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.GetStatus())
	})

	t.Run("publishes the decision with request metadata", func(t *testing.T) {
		pub := &recordingPublisher{}
		handler := newTestHandler(newTestLimiter(clock.NewMock(start), 1), pub.publish)
		ctx := handlers.ContextWithRequestMeta(context.Background(), handlers.RequestMeta{
			ClientIP: "203.0.113.7",
			Path:     "/limits/a",
		})

		_, err := handler.CheckLimit(ctx, &handlers.CheckLimitRequest{Key: "a"})

		require.NoError(t, err)
		require.Len(t, pub.events, 1)
		assert.Equal(t, "a", pub.events[0].Key)
		assert.True(t, pub.events[0].Allowed)
		assert.Equal(t, "203.0.113.7", pub.events[0].ClientIP)
		assert.Equal(t, "/limits/a", pub.events[0].Path)
		assert.NotEmpty(t, pub.events[0].ID)
	})

	t.Run("publish failures do not fail the request", func(t *testing.T) {
		pub := &recordingPublisher{err: errMock}
		handler := newTestHandler(newTestLimiter(clock.NewMock(start), 1), pub.publish)

		resp, err := handler.CheckLimit(context.Background(), &handlers.CheckLimitRequest{Key: "a"})

		require.NoError(t, err)
		assert.True(t, resp.Body.Allowed)
	})
}

func TestLimitsHandler_KeyNamespace(t *testing.T) {
	limiter := &keyRecordingLimiter{}
	handler := newTestHandler(limiter, nil)

	_, err := handler.CheckLimit(context.Background(), &handlers.CheckLimitRequest{Key: "http:abc"})
	require.NoError(t, err)

	_, err = handler.ResetLimit(context.Background(), &handlers.ResetLimitRequest{Key: "http:abc"})
	require.NoError(t, err)

	assert.Equal(t, []string{"api:http:abc", "api:http:abc"}, limiter.keys)
}

func TestResetLimit(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("starts a fresh window", func(t *testing.T) {
		handler := newTestHandler(newTestLimiter(clock.NewMock(start), 1), nil)
		req := &handlers.CheckLimitRequest{Key: "a"}

		_, _ = handler.CheckLimit(context.Background(), req)
		denied, err := handler.CheckLimit(context.Background(), req)
		require.NoError(t, err)
		require.False(t, denied.Body.Allowed)

		_, err = handler.ResetLimit(context.Background(), &handlers.ResetLimitRequest{Key: "a"})
		require.NoError(t, err)

		resp, err := handler.CheckLimit(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, resp.Body.Allowed)
	})

	t.Run("returns 500 when the limiter fails", func(t *testing.T) {
		handler := newTestHandler(failingLimiter{}, nil)

		_, err := handler.ResetLimit(context.Background(), &handlers.ResetLimitRequest{Key: "a"})

		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.GetStatus())
	})
}

func TestRoutes(t *testing.T) {
	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	handler := newTestHandler(newTestLimiter(clock.NewMock(time.Unix(0, 0)), 1), nil)
	handlers.RegisterRoutes(api, handler)

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		return w
	}

	t.Run("POST admits the first request", func(t *testing.T) {
		w := do(http.MethodPost, "/limits/route-key")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"allowed":true`)
	})

	t.Run("POST denies over the limit", func(t *testing.T) {
		w := do(http.MethodPost, "/limits/route-key")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "10", w.Header().Get("Retry-After"))
	})

	t.Run("DELETE clears the key", func(t *testing.T) {
		w := do(http.MethodDelete, "/limits/route-key")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, http.StatusOK, do(http.MethodPost, "/limits/route-key").Code)
	})

	t.Run("GET /ping answers", func(t *testing.T) {
		w := do(http.MethodGet, "/ping")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "pong")
	})
}
