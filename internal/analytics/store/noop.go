package store

import (
	"context"

	"github.com/serroba/speedbump/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs decisions.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

// SaveDecision logs allowed decisions at debug and denials at info.
func (n *Noop) SaveDecision(_ context.Context, event *analytics.DecisionEvent) error {
	fields := []zap.Field{
		zap.String("id", event.ID),
		zap.String("key", event.Key),
		zap.Bool("allowed", event.Allowed),
		zap.Duration("tillNextWindow", event.TillNextWindow),
		zap.String("path", event.Path),
		zap.String("clientIp", event.ClientIP),
		zap.Time("decidedAt", event.DecidedAt),
	}

	if event.Allowed {
		n.logger.Debug("decision received", fields...)
	} else {
		n.logger.Info("request denied", fields...)
	}

	return nil
}

var _ analytics.Store = (*Noop)(nil)
