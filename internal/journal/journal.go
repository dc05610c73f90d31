// Package journal persists an audit trail of runs and submitted orders to
// Postgres. It is optional: the engine runs identically without it, and a
// failed journal write never fails the run.
package journal

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"investbot/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	started_at     TIMESTAMPTZ NOT NULL,
	program_equity NUMERIC NOT NULL,
	budget         NUMERIC NOT NULL,
	spent          NUMERIC NOT NULL
);
CREATE TABLE IF NOT EXISTS run_orders (
	id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	run_id     BIGINT NOT NULL REFERENCES runs(id),
	ticker     TEXT NOT NULL,
	quantity   BIGINT NOT NULL,
	last_price NUMERIC NOT NULL,
	status     TEXT NOT NULL
);`

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Journal writes run records to Postgres.
type Journal struct {
	conn db
	pool *pgxpool.Pool
}

// Open connects, registers the shopspring decimal codec and ensures the
// schema exists.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse journal dsn: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect journal: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}
	return &Journal{conn: pool, pool: pool}, nil
}

func (j *Journal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}

// RecordRun stores one run and its per-order outcomes in a single
// transaction. Runs without orders are recorded too; they are the normal
// zero-budget case.
func (j *Journal) RecordRun(ctx context.Context, rec types.RunRecord) error {
	tx, err := j.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO runs (started_at, program_equity, budget, spent)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		rec.StartedAt, rec.ProgramEquity, rec.Budget, rec.Spent,
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ord := range rec.Orders {
		_, err := tx.Exec(ctx,
			`INSERT INTO run_orders (run_id, ticker, quantity, last_price, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			runID, ord.Ticker, ord.Quantity, ord.LastPrice, ord.Status,
		)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", ord.Ticker, err)
		}
	}
	return tx.Commit(ctx)
}
