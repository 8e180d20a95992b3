// Package events persists run telemetry to Postgres. Recording is
// best-effort: a broken database never fails a repair run, only the
// explicit db subcommands surface storage errors.
package events

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store wraps the Postgres connection pool.
type Store struct {
	conn *sql.DB
}

// Open connects to the database at the given URL.
func Open(ctx context.Context, url string) (*Store, error) {
	conn, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn returns the underlying *sql.DB for analytics queries.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id BIGSERIAL PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	workdir TEXT NOT NULL,
	command TEXT NOT NULL,
	outcome TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_events (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	at TIMESTAMPTZ NOT NULL DEFAULT now(),
	kind TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS attempt_records (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	at TIMESTAMPTZ NOT NULL DEFAULT now(),
	phase TEXT NOT NULL,
	attempt INT NOT NULL,
	exit_code INT NOT NULL,
	classification TEXT NOT NULL DEFAULT '',
	apply_status TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
CREATE INDEX IF NOT EXISTS idx_attempt_records_run ON attempt_records(run_id);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Reset drops and recreates the schema. Destructive.
func (s *Store) Reset(ctx context.Context) error {
	drop := `DROP TABLE IF EXISTS attempt_records, run_events, runs CASCADE`
	if _, err := s.conn.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return s.Migrate(ctx)
}
