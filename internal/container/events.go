package container

import (
	"github.com/samber/do"
	"github.com/serroba/speedbump/internal/analytics"
	analyticsstore "github.com/serroba/speedbump/internal/analytics/store"
	"github.com/serroba/speedbump/internal/messaging"
	"go.uber.org/zap"
)

// DecisionPublish publishes decision events. It is nil when events are disabled.
type DecisionPublish = messaging.Publish[analytics.DecisionEvent]

// EventsPackage provides DecisionPublish and, when events are enabled, the *messaging.PublisherGroup owning
// the Redis Streams publisher.
func EventsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*Redis](i).Client
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := messaging.NewRedisStreamPublisher(client, logger)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (DecisionPublish, error) {
		opts := do.MustInvoke[*Options](i)
		if !opts.Events {
			return nil, nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return analytics.NewDecisionPublisher(group.Publisher()), nil
	})
}

// ConsumerGroupPackage provides the *messaging.ConsumerGroup logging consumed decisions.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		client := do.MustInvoke[*Redis](i).Client
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := messaging.NewRedisStreamSubscriber(client, opts.ConsumerGroup, logger)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(analytics.NewDecisionConsumer(subscriber, analyticsstore.NewNoop(logger), logger))

		return group, nil
	})
}
