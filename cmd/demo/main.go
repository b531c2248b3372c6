// Command demo runs twenty checks for one key against a 10 second window admitting three requests.
package main

import (
	"context"
	"time"

	"github.com/serroba/speedbump/internal/container"
	"github.com/serroba/speedbump/internal/ratelimit"
	"github.com/serroba/speedbump/internal/store"
	"go.uber.org/zap"
)

const (
	key        = "user-123"
	iterations = 20
	interval   = time.Second
)

func main() {
	logger, err := container.NewLogger("console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	limiter := ratelimit.NewBuilder[ratelimit.FixedWindowState, ratelimit.FixedWindowMetadata]().
		Strategy(ratelimit.NewFixedWindow(10*time.Second, 3)).
		Store(store.NewMemoryStore[ratelimit.FixedWindowState]()).
		Build()

	ctx := context.Background()

	for i := range iterations {
		result, err := limiter.Check(ctx, key)
		if err != nil {
			logger.Fatal("check failed", zap.Int("request", i+1), zap.Error(err))
		}

		meta, _ := result.Metadata()

		if result.Allowed() {
			logger.Info("allowed", zap.Int("request", i+1), zap.Duration("tillNextWindow", meta.TillNextWindow))
		} else {
			logger.Warn("denied", zap.Int("request", i+1), zap.Duration("tillNextWindow", meta.TillNextWindow))
		}

		time.Sleep(interval)
	}
}
