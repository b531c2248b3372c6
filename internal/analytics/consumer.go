package analytics

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/speedbump/internal/messaging"
	"go.uber.org/zap"
)

// NewDecisionHandler persists each consumed decision to store.
func NewDecisionHandler(store Store) messaging.Handler[DecisionEvent] {
	return func(ctx context.Context, event *DecisionEvent) error {
		if err := store.SaveDecision(ctx, event); err != nil {
			return fmt.Errorf("save decision %s: %w", event.ID, err)
		}

		return nil
	}
}

// NewDecisionConsumer subscribes to decision events and hands them to store.
func NewDecisionConsumer(
	subscriber message.Subscriber,
	store Store,
	logger *zap.Logger,
) *messaging.Consumer[DecisionEvent] {
	return messaging.NewConsumer(subscriber, TopicDecided, NewDecisionHandler(store), logger)
}
