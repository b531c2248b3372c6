package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/speedbump/internal/ratelimit"
)

// CachedStore wraps a ratelimit.Store with Redis caching for reads.
// The wrapped store stays authoritative; cache failures only cost a round trip to it.
//
// Get may serve state up to the cache TTL old. The limiter never reads through the
// cache: it uses Update, which always goes to the wrapped store.
type CachedStore[S any] struct {
	store  ratelimit.Store[S]
	client redis.UniversalClient
	prefix string
	codec  Codec
	ttl    time.Duration
}

// NewCachedStore creates a new Redis-cached store decorator.
func NewCachedStore[S any](
	store ratelimit.Store[S], client redis.UniversalClient, codec Codec, ttl time.Duration,
) *CachedStore[S] {
	if codec == nil {
		codec = JSONCodec{}
	}

	return &CachedStore[S]{
		store:  store,
		client: client,
		prefix: "ratelimit:cache:",
		codec:  codec,
		ttl:    ttl,
	}
}

// Get returns the state for key, checking the cache first.
func (c *CachedStore[S]) Get(ctx context.Context, key string) (S, bool, error) {
	if state, ok := c.getFromCache(ctx, key); ok {
		return state, true, nil
	}

	state, found, err := c.store.Get(ctx, key)
	if err != nil || !found {
		return state, found, err
	}

	c.cacheState(ctx, key, state)

	return state, true, nil
}

// Set stores the state in the wrapped store and updates the cache.
func (c *CachedStore[S]) Set(ctx context.Context, key string, state S) error {
	if err := c.store.Set(ctx, key, state); err != nil {
		return err
	}

	c.cacheState(ctx, key, state)

	return nil
}

// Clear removes the state from the wrapped store and evicts the cache entry.
func (c *CachedStore[S]) Clear(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return err
	}

	return c.store.Clear(ctx, key)
}

// Update runs the read-modify-write cycle against the wrapped store, bypassing the cache.
// It is atomic when the wrapped store implements ratelimit.Updater. The committed state
// is written to the cache, or the entry is evicted if the cycle fails.
func (c *CachedStore[S]) Update(ctx context.Context, key string, init func() S, fn func(state *S) error) error {
	var committed S

	record := func(state *S) error {
		if err := fn(state); err != nil {
			return err
		}

		committed = *state

		return nil
	}

	var err error
	if updater, ok := c.store.(ratelimit.Updater[S]); ok {
		err = updater.Update(ctx, key, init, record)
	} else {
		err = c.updateUnlocked(ctx, key, init, record)
	}

	if err != nil {
		_ = c.client.Del(ctx, c.prefix+key).Err()

		return err
	}

	c.cacheState(ctx, key, committed)

	return nil
}

func (c *CachedStore[S]) updateUnlocked(ctx context.Context, key string, init func() S, fn func(state *S) error) error {
	state, found, err := c.store.Get(ctx, key)
	if err != nil {
		return err
	}

	if !found {
		state = init()
	}

	if err := fn(&state); err != nil {
		return err
	}

	return c.store.Set(ctx, key, state)
}

func (c *CachedStore[S]) getFromCache(ctx context.Context, key string) (S, bool) {
	var state S

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return state, false
	}

	if err := c.codec.Unmarshal(data, &state); err != nil {
		return state, false
	}

	return state, true
}

func (c *CachedStore[S]) cacheState(ctx context.Context, key string, state S) {
	data, err := c.codec.Marshal(state)
	if err != nil {
		return
	}

	_ = c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

// Shutdown is a no-op for CachedStore (client managed externally).
func (c *CachedStore[S]) Shutdown() error {
	return nil
}

// Compile-time checks.
var (
	_ ratelimit.Store[ratelimit.FixedWindowState]   = (*CachedStore[ratelimit.FixedWindowState])(nil)
	_ ratelimit.Updater[ratelimit.FixedWindowState] = (*CachedStore[ratelimit.FixedWindowState])(nil)
)
