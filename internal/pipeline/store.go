// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package pipeline turns documents into chunk records and questions into
// answers on top of a project store.
package pipeline

import (
	"context"

	"github.com/akcio-dev/akcio/internal/project"
	"github.com/akcio-dev/akcio/internal/store"
)

// ProjectStore is the part of project.Manager the pipelines use.
type ProjectStore interface {
	Exists(ctx context.Context, project string) (bool, error)
	Ensure(ctx context.Context, project string) (bool, error)
	Count(ctx context.Context, project string) (int64, error)
	Insert(ctx context.Context, project string, records []store.ChunkRecord) error
	Search(ctx context.Context, project string, query []float32, topK int) ([]store.ScoredChunk, error)
	KeywordSearch(ctx context.Context, project, text string, topK int) ([]store.ScoredChunk, error)
	ScalarEnabled() bool
	Dimensions() int
}

var _ ProjectStore = (*project.Manager)(nil)
