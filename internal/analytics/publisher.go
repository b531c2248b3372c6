package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/speedbump/internal/messaging"
)

// NewDecisionPublisher creates a publish function for decision events.
func NewDecisionPublisher(publisher message.Publisher) messaging.Publish[DecisionEvent] {
	return messaging.NewPublishFunc[DecisionEvent](publisher, TopicDecided, EventTypeDecision)
}
