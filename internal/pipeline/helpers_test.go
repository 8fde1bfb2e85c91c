// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package pipeline_test

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/embedding"
	"github.com/akcio-dev/akcio/internal/project"
	"github.com/akcio-dev/akcio/internal/prompt"
	"github.com/akcio-dev/akcio/internal/store"
	"github.com/akcio-dev/akcio/internal/store/storetest"
)

const dims = 64

type fixture struct {
	manager *project.Manager
	vector  *storetest.VectorIndex
	scalar  *storetest.ScalarIndex
}

func newFixture(t *testing.T, scalar bool) fixture {
	t.Helper()
	f := fixture{vector: storetest.NewVectorIndex()}
	opts := []project.Option{project.WithCollectionSpec(store.CollectionSpec{Dimensions: dims, Metric: store.MetricIP})}
	if scalar {
		f.scalar = storetest.NewScalarIndex()
		opts = append(opts, project.WithScalar(f.scalar))
	}
	m, err := project.New(f.vector, opts...)
	require.NoError(t, err)
	f.manager = m
	return f
}

func hashEmbedder() embedding.Embedder {
	return embedding.Check(embedding.NewHash(dims), dims, true)
}

// sliceChunker yields fixed chunks, optionally failing at index failAt.
type sliceChunker struct {
	texts   []string
	loadErr error
	failAt  int
	failErr error
}

func (s sliceChunker) Chunk(_ context.Context, _ string, _ chunker.SourceType, _ int) (iter.Seq2[chunker.Chunk, error], error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return func(yield func(chunker.Chunk, error) bool) {
		offset := 0
		for i, text := range s.texts {
			if s.failErr != nil && i == s.failAt {
				yield(chunker.Chunk{}, s.failErr)
				return
			}
			if !yield(chunker.Chunk{Text: text, Offset: offset}, nil) {
				return
			}
			offset += len([]rune(text)) + 1
		}
	}, nil
}

// failingEmbedder fails on the n-th call (0-based).
type failingEmbedder struct {
	embedding.Embedder
	mu    sync.Mutex
	calls int
	failN int
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	f.mu.Unlock()
	if n == f.failN {
		return nil, errors.New("rate limited")
	}
	return f.Embedder.Embed(ctx, text)
}

type shortEmbedder struct{}

func (shortEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }
func (shortEmbedder) Dimensions() int                                  { return 2 }
func (shortEmbedder) Name() string                                     { return "short" }

// recordingGenerator captures the prompt it was given.
type recordingGenerator struct {
	answer string
	err    error
	last   prompt.Prompt
	calls  int
}

func (g *recordingGenerator) Generate(_ context.Context, p prompt.Prompt) (string, error) {
	g.calls++
	g.last = p
	return g.answer, g.err
}
