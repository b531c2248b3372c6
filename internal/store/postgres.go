package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/speedbump/internal/ratelimit"
)

// PostgresStore is a PostgreSQL implementation of ratelimit.Store.
type PostgresStore[S any] struct {
	pool  *pgxpool.Pool
	table string
	codec Codec
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*postgresConfig)

type postgresConfig struct {
	table string
	codec Codec
}

// WithTable sets the state table name. Defaults to "ratelimit_state".
// The name is interpolated into SQL and must come from trusted configuration.
func WithTable(table string) PostgresOption {
	return func(c *postgresConfig) { c.table = table }
}

// WithPostgresCodec sets the state encoding. Defaults to JSON.
func WithPostgresCodec(codec Codec) PostgresOption {
	return func(c *postgresConfig) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// NewPostgresStore creates a new PostgreSQL-backed state store.
func NewPostgresStore[S any](pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStore[S] {
	cfg := postgresConfig{
		table: "ratelimit_state",
		codec: JSONCodec{},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &PostgresStore[S]{
		pool:  pool,
		table: cfg.table,
		codec: cfg.codec,
	}
}

// EnsureSchema creates the state table if it does not exist.
func (p *PostgresStore[S]) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			state      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`, pgx.Identifier{p.table}.Sanitize())

	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}

	return nil
}

func (p *PostgresStore[S]) Get(ctx context.Context, key string) (S, bool, error) {
	query := fmt.Sprintf(`SELECT state FROM %s WHERE key = $1`, p.ident())

	return p.load(ctx, p.pool, query, key)
}

func (p *PostgresStore[S]) Set(ctx context.Context, key string, state S) error {
	return p.save(ctx, p.pool, key, state)
}

func (p *PostgresStore[S]) Clear(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, p.ident())

	if _, err := p.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgres clear: %w", err)
	}

	return nil
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
// A key that has no row yet is not locked, so two first checks may race on insert;
// the upsert keeps the store consistent and the later write wins.
func (p *PostgresStore[S]) Update(ctx context.Context, key string, init func() S, fn func(state *S) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`SELECT state FROM %s WHERE key = $1 FOR UPDATE`, p.ident())

	state, found, err := p.load(ctx, tx, query, key)
	if err != nil {
		return err
	}

	if !found {
		state = init()
	}

	if err := fn(&state); err != nil {
		return err
	}

	if err := p.save(ctx, tx, key, state); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}

	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *PostgresStore[S]) load(ctx context.Context, q querier, query, key string) (S, bool, error) {
	var (
		state S
		data  []byte
	)

	if err := q.QueryRow(ctx, query, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return state, false, nil
		}

		return state, false, fmt.Errorf("postgres get: %w", err)
	}

	if err := p.codec.Unmarshal(data, &state); err != nil {
		return state, false, fmt.Errorf("postgres decode %s: %w", p.codec.Name(), err)
	}

	return state, true, nil
}

func (p *PostgresStore[S]) save(ctx context.Context, q querier, key string, state S) error {
	data, err := p.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("postgres encode %s: %w", p.codec.Name(), err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`, p.ident())

	if _, err := q.Exec(ctx, query, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("postgres set: %w", err)
	}

	return nil
}

func (p *PostgresStore[S]) ident() string {
	return pgx.Identifier{p.table}.Sanitize()
}

// Compile-time checks.
var (
	_ ratelimit.Store[ratelimit.FixedWindowState]   = (*PostgresStore[ratelimit.FixedWindowState])(nil)
	_ ratelimit.Updater[ratelimit.FixedWindowState] = (*PostgresStore[ratelimit.FixedWindowState])(nil)
)
