// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/akcio-dev/akcio/internal/store"
)

// Compile-time interface check.
var _ store.ScalarIndex = (*ScalarIndex)(nil)

// ScalarIndex implements store.ScalarIndex with one FTS5 table per project,
// ranked by bm25. It lives in its own database file so that it fails
// independently of the vector index.
type ScalarIndex struct {
	db *sql.DB
}

// NewScalarIndex opens (or creates) a SQLite database at dbPath.
func NewScalarIndex(dbPath string) (*ScalarIndex, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	const catalogDDL = `
CREATE TABLE IF NOT EXISTS keyword_indexes (
	name       TEXT PRIMARY KEY,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
)`
	if _, err := db.Exec(catalogDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating keyword_indexes table: %w", err)
	}
	return &ScalarIndex{db: db}, nil
}

func ftsTable(name string) string { return quoteIdent(store.TableKey(name) + "__fts") }

func (s *ScalarIndex) HasIndex(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM keyword_indexes WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up keyword index %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *ScalarIndex) CreateIndex(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO keyword_indexes(name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("registering keyword index %s: %w", name, err)
	}
	ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING fts5(text_id UNINDEXED, text, tokenize = 'porter unicode61')`, ftsTable(name))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating fts5 table for %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing keyword index %s: %w", name, err)
	}
	return nil
}

func (s *ScalarIndex) DropIndex(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+ftsTable(name)); err != nil {
		return fmt.Errorf("dropping fts5 table for %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keyword_indexes WHERE name = ?`, name); err != nil {
		return fmt.Errorf("unregistering keyword index %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing drop of keyword index %s: %w", name, err)
	}
	return nil
}

func (s *ScalarIndex) Index(ctx context.Context, name string, records []store.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`INSERT INTO %s(text_id, text) VALUES (?, ?)`, ftsTable(name))
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, q, r.TextID, r.Text); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", r.TextID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing keyword index writes for %s: %w", name, err)
	}
	return nil
}

var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// matchQuery turns free text into an FTS5 query that ORs each distinct term.
// Terms are double-quoted so FTS5 operators in user input are literal.
func matchQuery(text string) string {
	seen := map[string]bool{}
	var terms []string
	for _, t := range termPattern.FindAllString(strings.ToLower(text), -1) {
		if seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, `"`+t+`"`)
	}
	return strings.Join(terms, " OR ")
}

// Search ranks matches with bm25. The bm25 value (negative, lower is better)
// is mapped onto (0, 1) so it can be compared with vector similarities.
func (s *ScalarIndex) Search(ctx context.Context, name, query string, topK int) ([]store.ScoredChunk, error) {
	match := matchQuery(query)
	if match == "" || topK <= 0 {
		return nil, nil
	}

	table := ftsTable(name)
	q := fmt.Sprintf(`SELECT text_id, text, bm25(%[1]s) FROM %[1]s WHERE %[1]s MATCH ? ORDER BY bm25(%[1]s) LIMIT ?`, table)

	rows, err := s.db.QueryContext(ctx, q, match, topK)
	if err != nil {
		return nil, fmt.Errorf("searching keyword index %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var results []store.ScoredChunk
	for rows.Next() {
		var (
			r    store.ScoredChunk
			rank float64
		)
		if err := rows.Scan(&r.TextID, &r.Text, &rank); err != nil {
			return nil, fmt.Errorf("scanning keyword result: %w", err)
		}
		r.Score = normaliseRank(rank)
		r.Origin = store.OriginKeyword
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword results: %w", err)
	}
	return results, nil
}

func normaliseRank(bm25 float64) float64 {
	relevance := -bm25
	if relevance <= 0 {
		return 0
	}
	return relevance / (1 + relevance)
}

// Refresh is a no-op beyond an existence check: committed FTS5 writes are
// visible immediately.
func (s *ScalarIndex) Refresh(ctx context.Context, name string) error {
	ok, err := s.HasIndex(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("keyword index %s does not exist", name)
	}
	return nil
}

func (s *ScalarIndex) Count(ctx context.Context, name string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+ftsTable(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting keyword index %s: %w", name, err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *ScalarIndex) Close() error {
	return s.db.Close()
}
