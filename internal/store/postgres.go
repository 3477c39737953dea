package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

// Postgres mirrors the history log into the apy_history table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() { s.pool.Close() }

func (s *Postgres) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Postgres) Name() string { return "postgres" }

// Append inserts entries in a single transaction.
func (s *Postgres) Append(ctx context.Context, entries []monitor.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO apy_history (recorded_at, pool_id, chain, symbol, apy, project, tvl_usd)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.Timestamp, e.PoolID, e.Chain, e.Symbol, e.APY, e.Project, e.TVLUSD)
		if err != nil {
			return fmt.Errorf("insert history row %s: %w", e.PoolID, err)
		}
	}
	return tx.Commit(ctx)
}

// History returns the most recent rows for a pool, newest first.
func (s *Postgres) History(ctx context.Context, poolID string, limit int) ([]monitor.LogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT recorded_at, pool_id, chain, symbol, apy, project, tvl_usd
		FROM apy_history
		WHERE pool_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`, poolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []monitor.LogEntry
	for rows.Next() {
		var e monitor.LogEntry
		if err := rows.Scan(&e.Timestamp, &e.PoolID, &e.Chain, &e.Symbol, &e.APY, &e.Project, &e.TVLUSD); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
