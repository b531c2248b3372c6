package ratelimit

// Strategy is a limiting algorithm over a per-key state S producing metadata M.
//
// Implementations must be safe for concurrent use and must not perform I/O:
// CheckLimit is a function of the state, the current time and the policy configuration only.
type Strategy[S, M any] interface {
	// InitializeState returns the state for a key that has never been checked.
	InitializeState() S

	// CheckLimit decides whether the current request is allowed and records
	// the attempt by mutating state in place.
	CheckLimit(state *S) (Result[M], error)
}
