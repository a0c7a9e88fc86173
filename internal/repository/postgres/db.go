package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of *pgxpool.Pool the stores use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
        id         BIGSERIAL PRIMARY KEY,
        user_id    BIGINT NOT NULL,
        name       TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        CONSTRAINT idx_user_category_name UNIQUE (user_id, name)
    )`,
	`CREATE TABLE IF NOT EXISTS tasks (
        id                  BIGSERIAL PRIMARY KEY,
        user_id             BIGINT NOT NULL,
        category_id         BIGINT,
        title               TEXT NOT NULL DEFAULT '',
        description         TEXT NOT NULL DEFAULT '',
        priority            SMALLINT NOT NULL DEFAULT 0,
        due_date            TIMESTAMPTZ,
        is_completed        BOOLEAN NOT NULL DEFAULT FALSE,
        completed_at        TIMESTAMPTZ,
        is_recurring        BOOLEAN NOT NULL DEFAULT FALSE,
        recurrence_pattern  VARCHAR(16) NOT NULL DEFAULT 'none',
        recurrence_interval INTEGER NOT NULL DEFAULT 0,
        recurrence_end_date TIMESTAMPTZ,
        next_due_date       TIMESTAMPTZ,
        original_task_id    BIGINT,
        created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
        deleted_at          TIMESTAMPTZ
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_task_occurrence ON tasks (original_task_id, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_due_templates ON tasks (next_due_date)
        WHERE is_recurring AND deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks (user_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
