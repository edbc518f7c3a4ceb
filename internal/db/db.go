// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap and health checking for the Postgres store
// backend.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtwatch/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool. The notify tables are
// created before prepared statements are registered, since preparing a
// statement against a missing table fails.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	if err := EnsureSchema(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// schema is idempotent. Rules and history rows store their documents as
// jsonb; the store owns their shape.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS notify_settings (
		id         smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		doc        jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notify_rules (
		id         text PRIMARY KEY,
		position   integer NOT NULL,
		doc        jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notify_history (
		id          text PRIMARY KEY,
		started_at  timestamptz NOT NULL,
		doc         jsonb NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notify_history_started_at_idx ON notify_history (started_at DESC)`,
}

// EnsureSchema creates the notify tables on a dedicated connection.
func EnsureSchema(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect for schema: %w", err)
	}
	defer conn.Close(ctx)

	for _, stmt := range schema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// registerPreparedStatements registers all statements the store backend uses.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Settings
		"settings_get":    "SELECT doc FROM notify_settings WHERE id = 1",
		"settings_upsert": "INSERT INTO notify_settings (id, doc, updated_at) VALUES (1, $1, now()) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()",

		// Rules
		"rules_list":  "SELECT doc FROM notify_rules ORDER BY position, id",
		"rule_upsert": "INSERT INTO notify_rules (id, position, doc, updated_at) VALUES ($1, $2, $3, now()) ON CONFLICT (id) DO UPDATE SET position = EXCLUDED.position, doc = EXCLUDED.doc, updated_at = now()",
		"rules_prune": "DELETE FROM notify_rules WHERE NOT (id = ANY($1))",

		// History
		"history_list":   "SELECT doc FROM notify_history ORDER BY started_at DESC, id",
		"history_upsert": "INSERT INTO notify_history (id, started_at, doc) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING",
		"history_prune":  "DELETE FROM notify_history WHERE NOT (id = ANY($1))",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
