package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/speedbump/internal/analytics"
	"github.com/serroba/speedbump/internal/messaging"
	"github.com/serroba/speedbump/internal/ratelimit"
	"go.uber.org/zap"
)

// APIKeyPrefix namespaces keys checked and reset through the limits API, keeping
// them apart from the keys the request middleware limits clients by.
const APIKeyPrefix = "api:"

// Limiter checks and resets keys under a fixed-window policy.
type Limiter interface {
	Check(ctx context.Context, key string) (ratelimit.Result[ratelimit.FixedWindowMetadata], error)
	Reset(ctx context.Context, key string) error
}

// LimitsHandler exposes the limiter over HTTP.
type LimitsHandler struct {
	limiter Limiter
	publish messaging.Publish[analytics.DecisionEvent]
	logger  *zap.Logger
}

// NewLimitsHandler creates a new limits handler. publish may be nil.
func NewLimitsHandler(
	limiter Limiter,
	publish messaging.Publish[analytics.DecisionEvent],
	logger *zap.Logger,
) *LimitsHandler {
	return &LimitsHandler{
		limiter: limiter,
		publish: publish,
		logger:  logger,
	}
}

func (h *LimitsHandler) CheckLimit(ctx context.Context, req *CheckLimitRequest) (*CheckLimitResponse, error) {
	result, err := h.limiter.Check(ctx, APIKeyPrefix+req.Key)
	if err != nil {
		h.logger.Error("limit check failed", zap.String("key", req.Key), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to check limit")
	}

	meta, _ := result.Metadata()

	resp := &CheckLimitResponse{Status: http.StatusOK}
	resp.Body.Allowed = result.Allowed()
	resp.Body.TillNextWindowMs = meta.TillNextWindow.Milliseconds()

	if !result.Allowed() {
		resp.Status = http.StatusTooManyRequests
		resp.RetryAfter = RetryAfter(meta.TillNextWindow)
	}

	h.publishDecision(ctx, req.Key, result.Allowed(), meta.TillNextWindow)

	return resp, nil
}

func (h *LimitsHandler) ResetLimit(ctx context.Context, req *ResetLimitRequest) (*struct{}, error) {
	if err := h.limiter.Reset(ctx, APIKeyPrefix+req.Key); err != nil {
		h.logger.Error("limit reset failed", zap.String("key", req.Key), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to reset limit")
	}

	h.logger.Info("limit reset", zap.String("key", req.Key))

	return &struct{}{}, nil
}

func (h *LimitsHandler) Ping(_ context.Context, _ *struct{}) (*PingResponse, error) {
	resp := &PingResponse{}
	resp.Body.Message = "pong"

	return resp, nil
}

func (h *LimitsHandler) publishDecision(ctx context.Context, key string, allowed bool, till time.Duration) {
	if h.publish == nil {
		return
	}

	meta := RequestMetaFromContext(ctx)

	event := &analytics.DecisionEvent{
		ID:             uuid.NewString(),
		Key:            key,
		Allowed:        allowed,
		TillNextWindow: till,
		Path:           meta.Path,
		ClientIP:       meta.ClientIP,
		DecidedAt:      time.Now(),
	}

	if err := h.publish(ctx, event); err != nil {
		h.logger.Error("failed to publish decision event",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
