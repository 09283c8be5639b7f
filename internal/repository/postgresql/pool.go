package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// both collections share one layout; thumbnail_id is only written for videos
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %s (
    id              TEXT PRIMARY KEY,
    owner_id        TEXT NOT NULL DEFAULT '',
    status          TEXT CHECK (status IN ('processing', 'processed')),
    source_filename TEXT,
    outputs         JSONB,
    title           TEXT,
    description     TEXT,
    thumbnail_id    TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the videos and thumbnails tables when missing.
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	for _, t := range []string{"videos", "thumbnails"} {
		if _, err := r.pool.Exec(ctx, fmt.Sprintf(schemaTemplate, t)); err != nil {
			return fmt.Errorf("create table %s: %w", t, err)
		}
	}
	return nil
}
