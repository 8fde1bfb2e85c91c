// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/akcio-dev/akcio/internal/store"
)

func init() {
	sqlite_vec.Auto()
}

// vec0 rejects larger k values.
const maxKNN = 4096

// Compile-time interface check.
var _ store.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements store.VectorIndex with one chunk table and one
// vec0 virtual table per project. vec0 performs exact KNN; the configured
// index type and parameters are recorded in the catalog for reporting.
type VectorIndex struct {
	db *sql.DB
}

// NewVectorIndex opens (or creates) a SQLite database at dbPath and
// initialises the collection catalog.
func NewVectorIndex(dbPath string) (*VectorIndex, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	const catalogDDL = `
CREATE TABLE IF NOT EXISTS vector_collections (
	name         TEXT PRIMARY KEY,
	dimensions   INTEGER NOT NULL,
	metric       TEXT NOT NULL,
	index_type   TEXT NOT NULL DEFAULT '',
	index_params TEXT NOT NULL DEFAULT '{}',
	created_at   TEXT NOT NULL DEFAULT (datetime('now'))
)`
	if _, err := db.Exec(catalogDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating vector_collections table: %w", err)
	}

	return &VectorIndex{db: db}, nil
}

func chunkTable(name string) string { return quoteIdent(store.TableKey(name) + "__chunks") }
func vecTable(name string) string   { return quoteIdent(store.TableKey(name) + "__vec") }

// vecMetric maps a collection metric onto a vec0 distance metric. Inner
// product is served by cosine distance, which matches it for normalised
// embeddings.
func vecMetric(m store.Metric) string {
	if m == store.MetricL2 {
		return "l2"
	}
	return "cosine"
}

func (v *VectorIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	var n int
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_collections WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up collection %s: %w", name, err)
	}
	return n > 0, nil
}

func (v *VectorIndex) CreateCollection(ctx context.Context, name string, spec store.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	params := []byte("{}")
	if len(spec.IndexParams) > 0 {
		var err error
		if params, err = json.Marshal(spec.IndexParams); err != nil {
			return fmt.Errorf("marshalling index params: %w", err)
		}
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const catalogQ = `INSERT INTO vector_collections(name, dimensions, metric, index_type, index_params) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, catalogQ, name, spec.Dimensions, string(spec.Metric), spec.IndexType, string(params)); err != nil {
		return fmt.Errorf("registering collection %s: %w", name, err)
	}

	chunksDDL := fmt.Sprintf(`
CREATE TABLE %s (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	text_id TEXT NOT NULL CHECK (length(text_id) <= %d),
	text    TEXT NOT NULL CHECK (length(text) <= %d)
)`, chunkTable(name), store.MaxTextIDLength, store.MaxTextLength)
	if _, err := tx.ExecContext(ctx, chunksDDL); err != nil {
		return fmt.Errorf("creating chunk table for %s: %w", name, err)
	}

	vecDDL := fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING vec0(embedding float[%d] distance_metric=%s)`,
		vecTable(name), spec.Dimensions, vecMetric(spec.Metric))
	if _, err := tx.ExecContext(ctx, vecDDL); err != nil {
		return fmt.Errorf("creating vec0 table for %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing collection %s: %w", name, err)
	}
	return nil
}

func (v *VectorIndex) DropCollection(ctx context.Context, name string) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+vecTable(name)); err != nil {
		return fmt.Errorf("dropping vec0 table for %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+chunkTable(name)); err != nil {
		return fmt.Errorf("dropping chunk table for %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("unregistering collection %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing drop of %s: %w", name, err)
	}
	return nil
}

// Insert writes the batch in a single transaction.
func (v *VectorIndex) Insert(ctx context.Context, name string, records []store.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	spec, err := v.spec(ctx, name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := r.Validate(spec.Dimensions); err != nil {
			return err
		}
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	chunkQ := fmt.Sprintf(`INSERT INTO %s(text_id, text) VALUES (?, ?)`, chunkTable(name))
	vecQ := fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, vecTable(name))

	for _, r := range records {
		blob, err := sqlite_vec.SerializeFloat32(r.Embedding)
		if err != nil {
			return fmt.Errorf("serializing embedding for %s: %w", r.TextID, err)
		}

		res, err := tx.ExecContext(ctx, chunkQ, r.TextID, r.Text)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", r.TextID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading chunk id for %s: %w", r.TextID, err)
		}

		if _, err := tx.ExecContext(ctx, vecQ, id, blob); err != nil {
			return fmt.Errorf("inserting embedding %s: %w", r.TextID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks into %s: %w", name, err)
	}
	return nil
}

// Search performs a k-nearest-neighbour query. Scores are similarities
// derived from the vec0 distance.
func (v *VectorIndex) Search(ctx context.Context, name string, query []float32, topK int) ([]store.ScoredChunk, error) {
	spec, err := v.spec(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(query) != spec.Dimensions {
		return nil, store.DimensionMismatch(len(query), spec.Dimensions)
	}
	if topK <= 0 {
		return nil, nil
	}
	topK = min(topK, maxKNN)

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	q := fmt.Sprintf(`WITH knn AS (
	SELECT rowid, distance FROM %s WHERE embedding MATCH ? AND k = ?
)
SELECT c.text_id, c.text, knn.distance
FROM knn
JOIN %s c ON c.id = knn.rowid
ORDER BY knn.distance`, vecTable(name), chunkTable(name))

	rows, err := v.db.QueryContext(ctx, q, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var results []store.ScoredChunk
	for rows.Next() {
		var (
			r        store.ScoredChunk
			distance float64
		)
		if err := rows.Scan(&r.TextID, &r.Text, &distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Score = store.SimilarityFromDistance(spec.Metric, distance)
		r.Origin = store.OriginVector
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

func (v *VectorIndex) Count(ctx context.Context, name string) (int64, error) {
	if _, err := v.spec(ctx, name); err != nil {
		return 0, err
	}
	var n int64
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+chunkTable(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks in %s: %w", name, err)
	}
	return n, nil
}

// Spec returns the catalog entry of a collection.
func (v *VectorIndex) Spec(ctx context.Context, name string) (store.CollectionSpec, error) {
	return v.spec(ctx, name)
}

func (v *VectorIndex) spec(ctx context.Context, name string) (store.CollectionSpec, error) {
	var (
		spec   store.CollectionSpec
		metric string
		params string
	)
	err := v.db.QueryRowContext(ctx,
		`SELECT dimensions, metric, index_type, index_params FROM vector_collections WHERE name = ?`, name,
	).Scan(&spec.Dimensions, &metric, &spec.IndexType, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return spec, fmt.Errorf("collection %s does not exist", name)
	}
	if err != nil {
		return spec, fmt.Errorf("loading collection %s: %w", name, err)
	}
	spec.Metric = store.Metric(metric)
	if params != "" && params != "{}" {
		if err := json.Unmarshal([]byte(params), &spec.IndexParams); err != nil {
			return spec, fmt.Errorf("unmarshalling index params of %s: %w", name, err)
		}
	}
	return spec, nil
}

// Close closes the underlying database connection.
func (v *VectorIndex) Close() error {
	return v.db.Close()
}
