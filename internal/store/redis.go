package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/speedbump/internal/ratelimit"
)

const maxUpdateAttempts = 10

// RedisStore is a Redis implementation of ratelimit.Store.
// Each key holds one encoded state value under prefix+key.
type RedisStore[S any] struct {
	client redis.UniversalClient
	prefix string
	codec  Codec
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix string
	codec  Codec
	ttl    time.Duration
}

// WithPrefix sets the key prefix. Defaults to "ratelimit:".
func WithPrefix(prefix string) RedisOption {
	return func(c *redisConfig) { c.prefix = prefix }
}

// WithCodec sets the state encoding. Defaults to JSON.
func WithCodec(codec Codec) RedisOption {
	return func(c *redisConfig) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithTTL expires idle keys after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *redisConfig) { c.ttl = ttl }
}

// NewRedisStore creates a new Redis-backed state store.
func NewRedisStore[S any](client redis.UniversalClient, opts ...RedisOption) *RedisStore[S] {
	cfg := redisConfig{
		prefix: "ratelimit:",
		codec:  JSONCodec{},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &RedisStore[S]{
		client: client,
		prefix: cfg.prefix,
		codec:  cfg.codec,
		ttl:    cfg.ttl,
	}
}

func (r *RedisStore[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var state S

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return state, false, nil
		}

		return state, false, fmt.Errorf("redis get: %w", err)
	}

	if err := r.codec.Unmarshal(data, &state); err != nil {
		return state, false, fmt.Errorf("redis decode %s: %w", r.codec.Name(), err)
	}

	return state, true, nil
}

func (r *RedisStore[S]) Set(ctx context.Context, key string, state S) error {
	data, err := r.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", r.codec.Name(), err)
	}

	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (r *RedisStore[S]) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}

	return nil
}

// Update runs fn under an optimistic WATCH on the key and retries when another
// client writes the key between the read and the commit.
func (r *RedisStore[S]) Update(ctx context.Context, key string, init func() S, fn func(state *S) error) error {
	fullKey := r.prefix + key

	txf := func(tx *redis.Tx) error {
		state := init()

		data, err := tx.Get(ctx, fullKey).Bytes()

		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			if err := r.codec.Unmarshal(data, &state); err != nil {
				return fmt.Errorf("redis decode %s: %w", r.codec.Name(), err)
			}
		}

		if err := fn(&state); err != nil {
			return err
		}

		encoded, err := r.codec.Marshal(state)
		if err != nil {
			return fmt.Errorf("redis encode %s: %w", r.codec.Name(), err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, encoded, r.ttl)

			return nil
		})

		return err
	}

	for range maxUpdateAttempts {
		err := r.client.Watch(ctx, txf, fullKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return ErrConflict
}

// Shutdown is a no-op for RedisStore (client managed externally).
func (r *RedisStore[S]) Shutdown() error {
	return nil
}

// Compile-time checks.
var (
	_ ratelimit.Store[ratelimit.FixedWindowState]   = (*RedisStore[ratelimit.FixedWindowState])(nil)
	_ ratelimit.Updater[ratelimit.FixedWindowState] = (*RedisStore[ratelimit.FixedWindowState])(nil)
)
