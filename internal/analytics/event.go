package analytics

import "time"

const (
	// TopicDecided carries one message per admission decision.
	TopicDecided = "ratelimit.decided"
	// EventTypeDecision tags decision messages.
	EventTypeDecision = "decision"
)

// DecisionEvent represents a single admission decision made by the limiter.
type DecisionEvent struct {
	ID             string        `json:"id"`
	Key            string        `json:"key"`
	Allowed        bool          `json:"allowed"`
	TillNextWindow time.Duration `json:"tillNextWindow"`
	Path           string        `json:"path,omitempty"`
	ClientIP       string        `json:"clientIp,omitempty"`
	DecidedAt      time.Time     `json:"decidedAt"`
}
