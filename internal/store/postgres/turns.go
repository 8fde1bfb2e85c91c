// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package postgres stores conversation history in PostgreSQL, one
// history table per project, mirroring the embedded SQLite layout.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akcio-dev/akcio/internal/store"
)

func init() {
	store.RegisterTurnBackend("postgres", func(cfg *store.StorageConfig) (store.TurnStore, error) {
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres memory backend requires a dsn")
		}
		return NewTurnStore(context.Background(), cfg.PostgresDSN)
	})
}

// Compile-time interface check.
var _ store.TurnStore = (*TurnStore)(nil)

// TurnStore implements store.TurnStore on a pgx connection pool.
type TurnStore struct {
	pool *pgxpool.Pool
}

// NewTurnStore connects to dsn and verifies the connection.
func NewTurnStore(ctx context.Context, dsn string) (*TurnStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &TurnStore{pool: pool}, nil
}

func historyTable(project string) string { return "history__" + store.TableKey(project) }

func ident(project string) string {
	return pgx.Identifier{historyTable(project)}.Sanitize()
}

func (t *TurnStore) HasTable(ctx context.Context, project string) (bool, error) {
	var ok bool
	err := t.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name = $1)`,
		historyTable(project),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("looking up history table for %s: %w", project, err)
	}
	return ok, nil
}

func (t *TurnStore) EnsureTable(ctx context.Context, project string) error {
	table := ident(project)
	index := pgx.Identifier{"idx_" + historyTable(project)}.Sanitize()

	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		message    TEXT NOT NULL
	)`, table))
	batch.Queue(fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(session_id)`, index, table))

	if err := t.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating history table for %s: %w", project, err)
	}
	return nil
}

func (t *TurnStore) DropTable(ctx context.Context, project string) error {
	if _, err := t.pool.Exec(ctx, `DROP TABLE `+ident(project)); err != nil {
		return fmt.Errorf("dropping history table for %s: %w", project, err)
	}
	return nil
}

// AppendTurn inserts one row in autocommit mode.
func (t *TurnStore) AppendTurn(ctx context.Context, project, session string, turn store.Turn) error {
	msg, err := store.EncodeTurn(turn)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s(session_id, message) VALUES ($1, $2)`, ident(project))
	if _, err := t.pool.Exec(ctx, q, session, msg); err != nil {
		return fmt.Errorf("appending turn to %s: %w", project, err)
	}
	return nil
}

func (t *TurnStore) ListTurns(ctx context.Context, project, session string) ([]store.Turn, error) {
	q := fmt.Sprintf(`SELECT message FROM %s WHERE session_id = $1 ORDER BY id`, ident(project))
	rows, err := t.pool.Query(ctx, q, session)
	if err != nil {
		return nil, fmt.Errorf("listing turns of %s: %w", project, err)
	}

	raws, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning turns of %s: %w", project, err)
	}

	turns := make([]store.Turn, 0, len(raws))
	for _, raw := range raws {
		turn, err := store.DecodeTurn(raw)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (t *TurnStore) DeleteSession(ctx context.Context, project, session string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, ident(project))
	if _, err := t.pool.Exec(ctx, q, session); err != nil {
		return fmt.Errorf("clearing session %s of %s: %w", session, project, err)
	}
	return nil
}

func (t *TurnStore) Close() error {
	t.pool.Close()
	return nil
}
