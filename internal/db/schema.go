package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query surface shared by pgxpool.Pool and transactions. The
// repositories depend on it so tests can substitute stubs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id               TEXT PRIMARY KEY,
		model            TEXT NOT NULL,
		resolution       TEXT NOT NULL,
		duration_seconds INT NOT NULL,
		prompt           TEXT NOT NULL,
		ref_image_id     TEXT NOT NULL DEFAULT '',
		cost_estimate    NUMERIC(10,2) NOT NULL DEFAULT 0,
		remote_id        TEXT,
		status           TEXT NOT NULL,
		error_message    TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_created_at ON jobs (status, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_remote_id ON jobs (remote_id) WHERE remote_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS assets (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		mime       TEXT NOT NULL,
		name       TEXT NOT NULL,
		bytes      BIGINT NOT NULL DEFAULT 0,
		data       BYTEA NOT NULL,
		job_id     TEXT,
		metadata   JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_kind_job_id ON assets (kind, job_id)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		provider   TEXT PRIMARY KEY,
		ciphertext BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id            TEXT PRIMARY KEY,
		theme         TEXT NOT NULL DEFAULT 'dark',
		polling_ms    INT NOT NULL DEFAULT 2500,
		auto_download BOOLEAN NOT NULL DEFAULT FALSE,
		show_advanced BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("db: ensure schema: %w", err)
		}
	}
	return nil
}
