package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres backs the Store contract with a single key/value table.
// PutIfAbsent maps to INSERT ... ON CONFLICT DO NOTHING, which gives the
// allocator a genuine cross-process reservation primitive.
type Postgres struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS transcripts_kv (
	key           text PRIMARY KEY,
	value         bytea NOT NULL,
	integrity_tag text NOT NULL,
	updated_at    timestamptz NOT NULL DEFAULT now()
)`

// NewPostgres connects, pings, and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM transcripts_kv WHERE key = $1`, key,
	).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO transcripts_kv (key, value, integrity_tag, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, integrity_tag = EXCLUDED.integrity_tag, updated_at = now()`,
		key, value, IntegrityTag(value),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO transcripts_kv (key, value, integrity_tag)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING`,
		key, value, IntegrityTag(value),
	)
	if err != nil {
		return fmt.Errorf("put-if-absent %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyExists
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT key, integrity_tag FROM transcripts_kv
		WHERE starts_with(key, $1) AND NOT starts_with(key, '!')
		ORDER BY key`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.IntegrityTag); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
