package ratelimit

// Builder assembles a Limiter in two phases. Only ReadyBuilder, reached once both a
// store and a strategy are supplied, has a Build method, so an incomplete limiter
// cannot be constructed.
//
//	limiter := ratelimit.NewBuilder[ratelimit.FixedWindowState, ratelimit.FixedWindowMetadata]().
//		Store(store.NewMemoryStore[ratelimit.FixedWindowState]()).
//		Strategy(ratelimit.NewFixedWindow(10*time.Second, 10)).
//		Build()
type Builder[S, M any] struct{}

// NewBuilder returns a builder with neither dependency set.
func NewBuilder[S, M any]() Builder[S, M] {
	return Builder[S, M]{}
}

func (Builder[S, M]) Store(store Store[S]) StoreBuilder[S, M] {
	return StoreBuilder[S, M]{store: store}
}

func (Builder[S, M]) Strategy(strategy Strategy[S, M]) StrategyBuilder[S, M] {
	return StrategyBuilder[S, M]{strategy: strategy}
}

// StoreBuilder has a store and still needs a strategy.
type StoreBuilder[S, M any] struct {
	store Store[S]
}

func (b StoreBuilder[S, M]) Store(store Store[S]) StoreBuilder[S, M] {
	return StoreBuilder[S, M]{store: store}
}

func (b StoreBuilder[S, M]) Strategy(strategy Strategy[S, M]) ReadyBuilder[S, M] {
	return ReadyBuilder[S, M]{store: b.store, strategy: strategy}
}

// StrategyBuilder has a strategy and still needs a store.
type StrategyBuilder[S, M any] struct {
	strategy Strategy[S, M]
}

func (b StrategyBuilder[S, M]) Strategy(strategy Strategy[S, M]) StrategyBuilder[S, M] {
	return StrategyBuilder[S, M]{strategy: strategy}
}

func (b StrategyBuilder[S, M]) Store(store Store[S]) ReadyBuilder[S, M] {
	return ReadyBuilder[S, M]{store: store, strategy: b.strategy}
}

// ReadyBuilder has both dependencies.
type ReadyBuilder[S, M any] struct {
	store    Store[S]
	strategy Strategy[S, M]
}

func (b ReadyBuilder[S, M]) Store(store Store[S]) ReadyBuilder[S, M] {
	b.store = store

	return b
}

func (b ReadyBuilder[S, M]) Strategy(strategy Strategy[S, M]) ReadyBuilder[S, M] {
	b.strategy = strategy

	return b
}

// Build returns the configured Limiter.
func (b ReadyBuilder[S, M]) Build() *Limiter[S, M] {
	return New(b.store, b.strategy)
}
