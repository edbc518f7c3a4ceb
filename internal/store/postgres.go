package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/courtwatch/internal/db"
	"github.com/albapepper/courtwatch/internal/rules"
)

// PostgresBackend stores settings, rules and history as jsonb rows. Every
// save runs in one transaction: rows are upserted, then rows missing from
// the snapshot are pruned.
type PostgresBackend struct {
	pool *db.Pool
}

// NewPostgresBackend wraps an open pool. The pool must have been created by
// db.New so the prepared statements and tables exist.
func NewPostgresBackend(pool *db.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	var doc []byte
	err := b.pool.QueryRow(ctx, "settings_get").Scan(&doc)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	default:
		if err := json.Unmarshal(doc, &snap.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	snap.Rules, err = loadDocs[rules.Rule](ctx, b.pool, "rules_list")
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	snap.History, err = loadDocs[rules.RunResult](ctx, b.pool, "history_list")
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return snap, nil
}

func loadDocs[T any](ctx context.Context, pool *db.Pool, stmt string) ([]T, error) {
	rows, err := pool.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *PostgresBackend) Save(ctx context.Context, snap *Snapshot) error {
	batch := &pgx.Batch{}

	settingsDoc, err := json.Marshal(snap.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	batch.Queue("settings_upsert", settingsDoc)

	ruleIDs := make([]string, len(snap.Rules))
	for i, r := range snap.Rules {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode rule %s: %w", r.ID, err)
		}
		batch.Queue("rule_upsert", r.ID, i, doc)
		ruleIDs[i] = r.ID
	}
	batch.Queue("rules_prune", ruleIDs)

	runIDs := make([]string, len(snap.History))
	for i, h := range snap.History {
		doc, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("encode run %s: %w", h.ID, err)
		}
		batch.Queue("history_upsert", h.ID, h.StartedAt, doc)
		runIDs[i] = h.ID
	}
	batch.Queue("history_prune", runIDs)

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.HealthCheck(ctx)
}
