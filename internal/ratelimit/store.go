package ratelimit

import "context"

// Store persists strategy state per key.
//
// Implementations must be safe for concurrent use across distinct keys.
// Behavior for concurrent calls on the same key is implementation-defined.
type Store[S any] interface {
	// Get returns a copy of the state stored under key and whether it exists.
	Get(ctx context.Context, key string) (state S, found bool, err error)

	// Set replaces the state stored under key, creating it if needed.
	Set(ctx context.Context, key string, state S) error

	// Clear removes all state for key. The next Get reports it as absent.
	Clear(ctx context.Context, key string) error
}

// Updater is implemented by stores that can apply a read-modify-write cycle
// to one key atomically. The Limiter prefers it over separate Get and Set calls.
type Updater[S any] interface {
	// Update loads the state under key (or init() if absent), passes it to fn
	// and persists the result. If fn returns an error nothing is written.
	// fn may be invoked more than once by stores that retry on conflict.
	Update(ctx context.Context, key string, init func() S, fn func(state *S) error) error
}
