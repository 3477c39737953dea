package store

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS apy_history (
    id BIGSERIAL PRIMARY KEY,
    recorded_at TIMESTAMPTZ NOT NULL,
    pool_id TEXT NOT NULL,
    chain TEXT NOT NULL DEFAULT '',
    symbol TEXT NOT NULL DEFAULT '',
    apy DOUBLE PRECISION NOT NULL DEFAULT 0,
    project TEXT NOT NULL DEFAULT '',
    tvl_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS apy_history_pool_recorded_idx
    ON apy_history (pool_id, recorded_at DESC);
`

func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}
