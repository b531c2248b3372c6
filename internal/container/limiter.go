package container

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/speedbump/internal/ratelimit"
	"github.com/serroba/speedbump/internal/store"
	"go.uber.org/zap"
)

// StateStore is the store backing the fixed-window limiter.
type StateStore = ratelimit.Store[ratelimit.FixedWindowState]

// StorePackage provides the StateStore selected by Options.Store.
func StorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (StateStore, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		codec, err := store.CodecByName(opts.Codec)
		if err != nil {
			return nil, err
		}

		logger.Info("using state store", zap.String("store", opts.Store), zap.String("codec", codec.Name()))

		switch opts.Store {
		case StoreMemory:
			return store.NewMemoryStore[ratelimit.FixedWindowState](), nil
		case StoreRedis:
			return newRedisStore(i, opts, codec)
		case StorePostgres:
			return newPostgresStore(i, codec)
		case StoreCached:
			backing, err := newPostgresStore(i, codec)
			if err != nil {
				return nil, err
			}

			client := do.MustInvoke[*Redis](i).Client

			return store.NewCachedStore(backing, client, codec,
				time.Duration(opts.CacheTTLSeconds)*time.Second), nil
		default:
			return nil, fmt.Errorf("%w: unknown store %q", ErrInvalidOptions, opts.Store)
		}
	})
}

func newRedisStore(i *do.Injector, opts *Options, codec store.Codec) (StateStore, error) {
	client := do.MustInvoke[*Redis](i).Client

	return store.NewRedisStore[ratelimit.FixedWindowState](client,
		store.WithCodec(codec),
		store.WithTTL(time.Duration(opts.StateTTLSeconds)*time.Second),
	), nil
}

func newPostgresStore(i *do.Injector, codec store.Codec) (StateStore, error) {
	pool := do.MustInvoke[*Postgres](i).Pool
	st := store.NewPostgresStore[ratelimit.FixedWindowState](pool, store.WithPostgresCodec(codec))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := st.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	return st, nil
}

// LimiterPackage provides the fixed-window limiter over the configured store.
func LimiterPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.FixedWindowLimiter, error) {
		opts := do.MustInvoke[*Options](i)
		st := do.MustInvoke[StateStore](i)

		limiter := ratelimit.NewBuilder[ratelimit.FixedWindowState, ratelimit.FixedWindowMetadata]().
			Store(st).
			Strategy(ratelimit.NewFixedWindow(opts.Window(), uint32(opts.Limit))). //nolint:gosec // bounded by Validate
			Build()

		return limiter, nil
	})
}
