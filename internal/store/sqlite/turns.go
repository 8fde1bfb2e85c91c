// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akcio-dev/akcio/internal/store"
)

// Compile-time interface check.
var _ store.TurnStore = (*TurnStore)(nil)

// TurnStore implements store.TurnStore with one history table per project.
type TurnStore struct {
	db *sql.DB
}

// NewTurnStore opens (or creates) a SQLite database at dbPath.
func NewTurnStore(dbPath string) (*TurnStore, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &TurnStore{db: db}, nil
}

func historyTableName(project string) string { return "history__" + store.TableKey(project) }

func (t *TurnStore) HasTable(ctx context.Context, project string) (bool, error) {
	return tableExists(ctx, t.db, historyTableName(project))
}

func (t *TurnStore) EnsureTable(ctx context.Context, project string) error {
	table := historyTableName(project)
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	message    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS %s ON %s(session_id);`,
		quoteIdent(table), quoteIdent("idx_"+table), quoteIdent(table))

	if _, err := t.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating history table for %s: %w", project, err)
	}
	return nil
}

func (t *TurnStore) DropTable(ctx context.Context, project string) error {
	if _, err := t.db.ExecContext(ctx, `DROP TABLE `+quoteIdent(historyTableName(project))); err != nil {
		return fmt.Errorf("dropping history table for %s: %w", project, err)
	}
	return nil
}

// AppendTurn inserts one row; SQLite commits it on its own.
func (t *TurnStore) AppendTurn(ctx context.Context, project, session string, turn store.Turn) error {
	msg, err := store.EncodeTurn(turn)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s(session_id, message) VALUES (?, ?)`, quoteIdent(historyTableName(project)))
	if _, err := t.db.ExecContext(ctx, q, session, msg); err != nil {
		return fmt.Errorf("appending turn to %s: %w", project, err)
	}
	return nil
}

func (t *TurnStore) ListTurns(ctx context.Context, project, session string) ([]store.Turn, error) {
	q := fmt.Sprintf(`SELECT message FROM %s WHERE session_id = ? ORDER BY id`, quoteIdent(historyTableName(project)))
	rows, err := t.db.QueryContext(ctx, q, session)
	if err != nil {
		return nil, fmt.Errorf("listing turns of %s: %w", project, err)
	}
	defer func() { _ = rows.Close() }()

	turns := []store.Turn{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn, err := store.DecodeTurn(raw)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return turns, nil
}

func (t *TurnStore) DeleteSession(ctx context.Context, project, session string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE session_id = ?`, quoteIdent(historyTableName(project)))
	if _, err := t.db.ExecContext(ctx, q, session); err != nil {
		return fmt.Errorf("clearing session %s of %s: %w", session, project, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (t *TurnStore) Close() error {
	return t.db.Close()
}
