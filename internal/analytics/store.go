package analytics

import "context"

// Store defines the interface for persisting decision events.
type Store interface {
	SaveDecision(ctx context.Context, event *DecisionEvent) error
}
