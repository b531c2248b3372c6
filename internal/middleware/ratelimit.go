package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/speedbump/internal/analytics"
	"github.com/serroba/speedbump/internal/handlers"
	"github.com/serroba/speedbump/internal/messaging"
	"github.com/serroba/speedbump/internal/ratelimit"
	"go.uber.org/zap"
)

// ClientKeyPrefix namespaces the keys the middleware derives from client identity.
// It differs from handlers.APIKeyPrefix, so the limits API cannot reach them.
const ClientKeyPrefix = "http:"

// Limiter admits or denies a key under a fixed-window policy.
type Limiter interface {
	Check(ctx context.Context, key string) (ratelimit.Result[ratelimit.FixedWindowMetadata], error)
}

// RateLimiter returns a Huma middleware that limits requests based on client IP and User-Agent.
//
// Operations whose metadata sets ratelimit.MetadataKey to false are not limited.
// When publish is non-nil every decision is published; publish failures are logged
// and never fail the request.
func RateLimiter(
	api huma.API,
	limiter Limiter,
	publish messaging.Publish[analytics.DecisionEvent],
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := getOperationPath(ctx)

		if disabled(ctx) {
			logger.Debug("rate limiting disabled for endpoint",
				zap.String("path", path), zap.String("method", ctx.Method()))
			next(ctx)

			return
		}

		key := clientKey(ctx)

		result, err := limiter.Check(ctx.Context(), key)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		meta, _ := result.Metadata()

		if publish != nil {
			event := &analytics.DecisionEvent{
				ID:             uuid.NewString(),
				Key:            key,
				Allowed:        result.Allowed(),
				TillNextWindow: meta.TillNextWindow,
				Path:           path,
				ClientIP:       clientIP(ctx),
				DecidedAt:      time.Now(),
			}

			if err := publish(ctx.Context(), event); err != nil {
				logger.Error("failed to publish decision event", zap.String("path", path), zap.Error(err))
			}
		}

		if !result.Allowed() {
			logger.Warn("rate limit exceeded",
				zap.String("path", path),
				zap.String("method", ctx.Method()),
				zap.Duration("tillNextWindow", meta.TillNextWindow),
				zap.String("client_ip", clientIP(ctx)),
			)
			ctx.SetHeader("Retry-After", handlers.RetryAfter(meta.TillNextWindow))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next(ctx)
	}
}

func disabled(ctx huma.Context) bool {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return false
	}

	enabled, ok := op.Metadata[ratelimit.MetadataKey].(bool)

	return ok && !enabled
}

// getOperationPath extracts the path from the operation, if available.
func getOperationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// clientKey generates a unique key for rate limiting based on IP and User-Agent.
func clientKey(ctx huma.Context) string {
	ip := clientIP(ctx)
	ua := ctx.Header("User-Agent")

	hash := sha256.Sum256([]byte(ip + "|" + ua))

	return ClientKeyPrefix + hex.EncodeToString(hash[:])
}

// clientIP extracts the client IP from the request, considering proxies.
func clientIP(ctx huma.Context) string {
	// X-Forwarded-For may list a chain; the first entry is the original client.
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()
	if addr == "" {
		addr = ctx.Host()
	}

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}
