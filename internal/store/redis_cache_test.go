package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/speedbump/internal/clock"
	"github.com/serroba/speedbump/internal/ratelimit"
	"github.com/serroba/speedbump/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis fails every command immediately; CachedStore treats cache failures as misses.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

type updaterBacking struct {
	*store.MemoryStore[ratelimit.FixedWindowState]
	updates int
}

func (u *updaterBacking) Update(
	ctx context.Context, key string, init func() ratelimit.FixedWindowState,
	fn func(state *ratelimit.FixedWindowState) error,
) error {
	u.updates++

	state, found, err := u.Get(ctx, key)
	if err != nil {
		return err
	}

	if !found {
		state = init()
	}

	if err := fn(&state); err != nil {
		return err
	}

	return u.Set(ctx, key, state)
}

func TestCachedStore_Update(t *testing.T) {
	ctx := context.Background()
	initState := func() ratelimit.FixedWindowState { return ratelimit.FixedWindowState{} }
	increment := func(s *ratelimit.FixedWindowState) error {
		s.Count++

		return nil
	}

	t.Run("delegates to an atomic backing store", func(t *testing.T) {
		backing := &updaterBacking{MemoryStore: store.NewMemoryStore[ratelimit.FixedWindowState]()}
		cached := store.NewCachedStore[ratelimit.FixedWindowState](backing, unreachableRedis(t), nil, time.Minute)

		require.NoError(t, cached.Update(ctx, "k", initState, increment))
		require.NoError(t, cached.Update(ctx, "k", initState, increment))

		assert.Equal(t, 2, backing.updates)

		got, found, err := backing.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint32(2), got.Count)
	})

	t.Run("falls back to get and set on a plain backing store", func(t *testing.T) {
		backing := store.NewMemoryStore[ratelimit.FixedWindowState]()
		cached := store.NewCachedStore[ratelimit.FixedWindowState](backing, unreachableRedis(t), nil, time.Minute)

		require.NoError(t, cached.Update(ctx, "k", initState, increment))

		got, _, err := backing.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, uint32(1), got.Count)
	})

	t.Run("a failing update writes nothing", func(t *testing.T) {
		backing := store.NewMemoryStore[ratelimit.FixedWindowState]()
		cached := store.NewCachedStore[ratelimit.FixedWindowState](backing, unreachableRedis(t), nil, time.Minute)
		boom := errors.New("boom")

		err := cached.Update(ctx, "k", initState, func(*ratelimit.FixedWindowState) error { return boom })

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, backing.Len())
	})

	t.Run("the limiter routes through the backing store", func(t *testing.T) {
		backing := &updaterBacking{MemoryStore: store.NewMemoryStore[ratelimit.FixedWindowState]()}
		cached := store.NewCachedStore[ratelimit.FixedWindowState](backing, unreachableRedis(t), nil, time.Minute)
		c := clock.NewMock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		limiter := ratelimit.New[ratelimit.FixedWindowState, ratelimit.FixedWindowMetadata](
			cached, ratelimit.NewFixedWindow(10*time.Second, 2, ratelimit.WithClock(c)),
		)

		for _, want := range []bool{true, true, false} {
			allowed, err := limiter.Limit(ctx, "client")

			require.NoError(t, err)
			assert.Equal(t, want, allowed)
		}

		assert.Equal(t, 3, backing.updates)
	})
}
