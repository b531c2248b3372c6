package ratelimit

import "context"

// Limiter ties a Store to a Strategy and performs the read-check-write cycle per key.
//
// With a plain Store the cycle is Get, CheckLimit, Set and is not atomic: two concurrent
// calls for the same key may read the same state and the later Set wins, under-counting
// requests in that window. Stores implementing Updater run the cycle atomically.
type Limiter[S, M any] struct {
	store    Store[S]
	strategy Strategy[S, M]
}

// New creates a Limiter from a store and a strategy.
func New[S, M any](store Store[S], strategy Strategy[S, M]) *Limiter[S, M] {
	return &Limiter[S, M]{
		store:    store,
		strategy: strategy,
	}
}

// Limit reports whether the request identified by key is allowed.
func (l *Limiter[S, M]) Limit(ctx context.Context, key string) (bool, error) {
	result, err := l.Check(ctx, key)
	if err != nil {
		return false, err
	}

	return result.Allowed(), nil
}

// Check is Limit returning the full strategy result, including metadata.
func (l *Limiter[S, M]) Check(ctx context.Context, key string) (Result[M], error) {
	if updater, ok := l.store.(Updater[S]); ok {
		return l.checkAtomic(ctx, updater, key)
	}

	state, found, err := l.store.Get(ctx, key)
	if err != nil {
		return Result[M]{}, &StoreError{Op: "get", Key: key, Err: err}
	}

	if !found {
		state = l.strategy.InitializeState()
	}

	result, err := l.strategy.CheckLimit(&state)
	if err != nil {
		return Result[M]{}, &StrategyError{Key: key, Err: err}
	}

	if err := l.store.Set(ctx, key, state); err != nil {
		return Result[M]{}, &StoreError{Op: "set", Key: key, Err: err}
	}

	return result, nil
}

func (l *Limiter[S, M]) checkAtomic(ctx context.Context, updater Updater[S], key string) (Result[M], error) {
	var (
		result      Result[M]
		strategyErr error
	)

	err := updater.Update(ctx, key, l.strategy.InitializeState, func(state *S) error {
		result, strategyErr = l.strategy.CheckLimit(state)

		return strategyErr
	})

	if strategyErr != nil {
		return Result[M]{}, &StrategyError{Key: key, Err: strategyErr}
	}

	if err != nil {
		return Result[M]{}, &StoreError{Op: "update", Key: key, Err: err}
	}

	return result, nil
}

// Reset clears all state for key.
func (l *Limiter[S, M]) Reset(ctx context.Context, key string) error {
	if err := l.store.Clear(ctx, key); err != nil {
		return &StoreError{Op: "clear", Key: key, Err: err}
	}

	return nil
}
