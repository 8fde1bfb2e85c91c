// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package project owns the lifecycle of a project's retrieval index across the
// vector backend and the optional scalar backend. Divergence between the two
// is reported as an inconsistent-state error and never repaired.
package project

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DefaultCollectionSpec is used when no spec option is given.
var DefaultCollectionSpec = store.CollectionSpec{
	Dimensions:  768,
	Metric:      store.MetricIP,
	IndexType:   "IVF_FLAT",
	IndexParams: map[string]any{"nlist": 1024},
}

// ValidateName rejects names that cannot be used as collection or table names.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return akcioerr.New(akcioerr.CodeProjectNameInvalid,
			"project name must match [A-Za-z_][A-Za-z0-9_]*", akcioerr.FieldProject(name))
	}
	return nil
}

// Manager coordinates a VectorIndex and an optional ScalarIndex. Lifecycle
// calls on one project must not race each other.
type Manager struct {
	vector store.VectorIndex
	scalar store.ScalarIndex
	spec   store.CollectionSpec
	logger *slog.Logger
}

type Option func(*Manager)

// WithScalar enables scalar mode. A nil index leaves the manager vector-only.
func WithScalar(s store.ScalarIndex) Option {
	return func(m *Manager) { m.scalar = s }
}

func WithCollectionSpec(spec store.CollectionSpec) Option {
	return func(m *Manager) { m.spec = spec }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New builds a Manager. The collection spec is validated here so that a bad
// configuration fails at startup rather than on the first Create.
func New(vector store.VectorIndex, opts ...Option) (*Manager, error) {
	m := &Manager{
		vector: vector,
		spec:   DefaultCollectionSpec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if vector == nil {
		return nil, akcioerr.New(akcioerr.CodeStoreBackendOpenFailure, "project manager needs a vector index")
	}
	if err := m.spec.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) ScalarEnabled() bool { return m.scalar != nil }

// Dimensions is the embedding dimension every record must have.
func (m *Manager) Dimensions() int { return m.spec.Dimensions }

// Exists reports whether the vector collection exists. In scalar mode the
// scalar index must agree.
func (m *Manager) Exists(ctx context.Context, project string) (bool, error) {
	if err := ValidateName(project); err != nil {
		return false, err
	}
	return m.exists(ctx, project)
}

func (m *Manager) exists(ctx context.Context, project string) (bool, error) {
	hasVector, err := m.vector.HasCollection(ctx, project)
	if err != nil {
		return false, backendErr(err, akcioerr.CodeRetrievalVectorFailure, "checking vector collection", project, "exists")
	}
	if m.scalar == nil {
		return hasVector, nil
	}

	hasScalar, err := m.scalar.HasIndex(ctx, project)
	if err != nil {
		return false, backendErr(err, akcioerr.CodeRetrievalScalarFailure, "checking scalar index", project, "exists")
	}
	if hasVector != hasScalar {
		return false, akcioerr.New(akcioerr.CodeProjectStateCheckInconsistent,
			"vector and scalar stores disagree on project existence",
			akcioerr.FieldProject(project),
			akcioerr.Field("vector_exists", hasVector),
			akcioerr.Field("scalar_exists", hasScalar))
	}
	return hasVector, nil
}

// Create builds the vector collection and, in scalar mode, the scalar index.
// A scalar failure after the vector collection was created is reported as
// inconsistent state; the vector collection is left in place.
func (m *Manager) Create(ctx context.Context, project string) error {
	if err := ValidateName(project); err != nil {
		return err
	}
	ok, err := m.exists(ctx, project)
	if err != nil {
		return err
	}
	if ok {
		return akcioerr.New(akcioerr.CodeProjectStoreAlreadyExists, "project already exists",
			akcioerr.FieldProject(project))
	}
	return m.create(ctx, project)
}

func (m *Manager) create(ctx context.Context, project string) error {
	if err := m.vector.CreateCollection(ctx, project, m.spec); err != nil {
		return backendErr(err, akcioerr.CodeProjectStoreWriteFailure, "creating vector collection", project, "create")
	}
	if m.scalar != nil {
		if err := m.scalar.CreateIndex(ctx, project); err != nil {
			m.logger.Error("scalar index create failed after vector collection was created",
				"project", project, "error", err)
			return akcioerr.Wrap(err, akcioerr.CodeProjectStateCreateInconsistent,
				"vector collection created but scalar index failed",
				akcioerr.FieldProject(project), akcioerr.FieldOperation("create"))
		}
	}
	m.logger.Info("project created", "project", project,
		"metric", m.spec.Metric, "index_type", m.spec.IndexType, "scalar", m.scalar != nil)
	return nil
}

// Ensure creates the project when it does not exist.
func (m *Manager) Ensure(ctx context.Context, project string) (bool, error) {
	if err := ValidateName(project); err != nil {
		return false, err
	}
	ok, err := m.exists(ctx, project)
	if err != nil || ok {
		return false, err
	}
	if err := m.create(ctx, project); err != nil {
		return false, err
	}
	return true, nil
}

// Drop removes the project from both backends and verifies it is gone.
func (m *Manager) Drop(ctx context.Context, project string) error {
	if err := ValidateName(project); err != nil {
		return err
	}
	ok, err := m.exists(ctx, project)
	if err != nil {
		return err
	}
	if !ok {
		return akcioerr.New(akcioerr.CodeProjectStoreNotFound, "project does not exist",
			akcioerr.FieldProject(project))
	}

	if err := m.vector.DropCollection(ctx, project); err != nil {
		return backendErr(err, akcioerr.CodeProjectStoreWriteFailure, "dropping vector collection", project, "drop")
	}
	if m.scalar != nil {
		if err := m.scalar.DropIndex(ctx, project); err != nil {
			m.logger.Error("scalar index drop failed after vector collection was dropped",
				"project", project, "error", err)
			return akcioerr.Wrap(err, akcioerr.CodeProjectStateDropInconsistent,
				"vector collection dropped but scalar index drop failed",
				akcioerr.FieldProject(project), akcioerr.FieldOperation("drop"))
		}
	}

	still, err := m.exists(ctx, project)
	if err != nil {
		return err
	}
	if still {
		return akcioerr.New(akcioerr.CodeProjectStateDropInconsistent,
			"project still exists after drop", akcioerr.FieldProject(project))
	}
	m.logger.Info("project dropped", "project", project)
	return nil
}

// Count returns the vector entity count. In scalar mode the scalar index is
// refreshed first and the counts must match.
func (m *Manager) Count(ctx context.Context, project string) (int64, error) {
	if err := m.requireExisting(ctx, project, "count"); err != nil {
		return 0, err
	}

	n, err := m.vector.Count(ctx, project)
	if err != nil {
		return 0, backendErr(err, akcioerr.CodeRetrievalVectorFailure, "counting vector collection", project, "count")
	}
	if m.scalar == nil {
		return n, nil
	}

	if err := m.scalar.Refresh(ctx, project); err != nil {
		return 0, backendErr(err, akcioerr.CodeRetrievalScalarFailure, "refreshing scalar index", project, "count")
	}
	s, err := m.scalar.Count(ctx, project)
	if err != nil {
		return 0, backendErr(err, akcioerr.CodeRetrievalScalarFailure, "counting scalar index", project, "count")
	}
	if n != s {
		return 0, akcioerr.New(akcioerr.CodeProjectStateCountInconsistent,
			"vector and scalar stores disagree on entity count",
			akcioerr.FieldProject(project),
			akcioerr.Field("vector_count", n),
			akcioerr.Field("scalar_count", s))
	}
	return n, nil
}

// Insert writes one batch to the vector index, then mirrors it to the scalar
// index. A mirror failure leaves the vector batch committed.
func (m *Manager) Insert(ctx context.Context, project string, records []store.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ValidateName(project); err != nil {
		return err
	}
	for _, r := range records {
		if err := r.Validate(m.spec.Dimensions); err != nil {
			return akcioerr.With(err, akcioerr.FieldProject(project))
		}
	}

	if err := m.vector.Insert(ctx, project, records); err != nil {
		return backendErr(err, akcioerr.CodeProjectStoreWriteFailure, "inserting into vector collection", project, "insert")
	}
	if m.scalar != nil {
		if err := m.scalar.Index(ctx, project, records); err != nil {
			m.logger.Error("scalar mirror failed after vector insert",
				"project", project, "records", len(records), "error", err)
			return akcioerr.Wrap(err, akcioerr.CodeProjectStateInsertInconsistent,
				"vector batch committed but scalar mirror failed",
				akcioerr.FieldProject(project), akcioerr.FieldOperation("insert"),
				akcioerr.Field("records", len(records)))
		}
	}
	return nil
}

// Search returns vector hits ordered by descending score.
func (m *Manager) Search(ctx context.Context, project string, query []float32, topK int) ([]store.ScoredChunk, error) {
	if err := ValidateName(project); err != nil {
		return nil, err
	}
	hits, err := m.vector.Search(ctx, project, query, topK)
	if err != nil {
		return nil, backendErr(err, akcioerr.CodeRetrievalVectorFailure, "searching vector collection", project, "search")
	}
	return hits, nil
}

// KeywordSearch returns nil, nil when scalar mode is off.
func (m *Manager) KeywordSearch(ctx context.Context, project, text string, topK int) ([]store.ScoredChunk, error) {
	if m.scalar == nil {
		return nil, nil
	}
	if err := ValidateName(project); err != nil {
		return nil, err
	}
	hits, err := m.scalar.Search(ctx, project, text, topK)
	if err != nil {
		return nil, backendErr(err, akcioerr.CodeRetrievalScalarFailure, "searching scalar index", project, "keyword_search")
	}
	return hits, nil
}

func (m *Manager) requireExisting(ctx context.Context, project, op string) error {
	if err := ValidateName(project); err != nil {
		return err
	}
	ok, err := m.exists(ctx, project)
	if err != nil {
		return err
	}
	if !ok {
		return akcioerr.New(akcioerr.CodeProjectStoreNotFound, "project does not exist",
			akcioerr.FieldProject(project), akcioerr.FieldOperation(op))
	}
	return nil
}

func backendErr(err error, code akcioerr.Code, msg, project, op string) error {
	return akcioerr.Classify(err, code, msg, akcioerr.FieldProject(project), akcioerr.FieldOperation(op))
}
