// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/akcio-dev/akcio/internal/embedding"
	"github.com/akcio-dev/akcio/internal/prompt"
	"github.com/akcio-dev/akcio/internal/provider"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Retrieval defaults.
const (
	DefaultTopK      = 10
	DefaultThreshold = 0.6
)

// Search answers questions from a project's chunks. Nothing is retried here;
// retry policy belongs to the embedder and the generator.
type Search struct {
	store     ProjectStore
	embedder  embedding.Embedder
	builder   prompt.Builder
	generator provider.Generator
	topK      int
	threshold float64
	score     ScoreFunc
	metrics   *Metrics
	logger    *slog.Logger
}

type SearchOption func(*Search)

func WithTopK(k int) SearchOption {
	return func(s *Search) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithThreshold drops vector hits scoring below t.
func WithThreshold(t float64) SearchOption {
	return func(s *Search) { s.threshold = t }
}

func WithScoreFunc(f ScoreFunc) SearchOption {
	return func(s *Search) { s.score = f }
}

func WithSearchMetrics(m *Metrics) SearchOption {
	return func(s *Search) { s.metrics = m }
}

func WithSearchLogger(l *slog.Logger) SearchOption {
	return func(s *Search) { s.logger = l }
}

func NewSearch(st ProjectStore, e embedding.Embedder, b prompt.Builder, g provider.Generator, opts ...SearchOption) *Search {
	s := &Search{
		store:     st,
		embedder:  e,
		builder:   b,
		generator: g,
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
		score:     PreferHigherScore,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search answers question with context from project and the given history.
// An empty retrieval result still produces an answer.
func (s *Search) Search(ctx context.Context, question string, history []store.Turn, project string) (answer string, err error) {
	ctx, span := startSpan(ctx, "pipeline.search", project, attribute.Int("akcio.history_turns", len(history)))
	defer func() {
		endSpan(span, err)
		s.metrics.finish("search", err)
	}()

	chunks, err := s.retrieve(ctx, question, project)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.Int("akcio.context_chunks", len(chunks)))

	p := s.builder.Build(question, chunks, history)

	start := time.Now()
	answer, err = s.generator.Generate(ctx, p)
	s.metrics.observeStage("generate", start)
	if err != nil {
		return "", akcioerr.Classify(err, akcioerr.CodeGenerationProviderFailure, "generating answer",
			akcioerr.FieldProject(project))
	}
	return answer, nil
}

// Retrieve returns the merged context chunks for question without generating.
func (s *Search) Retrieve(ctx context.Context, question, project string) (chunks []store.ScoredChunk, err error) {
	ctx, span := startSpan(ctx, "pipeline.retrieve", project)
	defer func() {
		endSpan(span, err)
		s.metrics.finish("retrieve", err)
	}()
	return s.retrieve(ctx, question, project)
}

func (s *Search) retrieve(ctx context.Context, question, project string) ([]store.ScoredChunk, error) {
	ok, err := s.store.Exists(ctx, project)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, akcioerr.New(akcioerr.CodeProjectStoreNotFound, "project does not exist",
			akcioerr.FieldProject(project), akcioerr.FieldOperation("search"))
	}

	start := time.Now()
	vec, err := s.embedder.Embed(ctx, question)
	s.metrics.observeStage("embed", start)
	if err != nil {
		return nil, akcioerr.Classify(err, akcioerr.CodeEmbeddingVectorFailure, "embedding question",
			akcioerr.FieldProject(project), akcioerr.FieldProvider(s.embedder.Name()))
	}
	if want := s.store.Dimensions(); want > 0 && len(vec) != want {
		return nil, akcioerr.New(akcioerr.CodeEmbeddingDimensionMismatch,
			fmt.Sprintf("question embedding has %d dimensions, collection has %d", len(vec), want),
			akcioerr.FieldProject(project), akcioerr.FieldProvider(s.embedder.Name()))
	}

	start = time.Now()
	hits, err := s.store.Search(ctx, project, vec, s.topK)
	s.metrics.observeStage("vector_search", start)
	if err != nil {
		return nil, err
	}
	hits = aboveThreshold(hits, s.threshold)

	if s.store.ScalarEnabled() {
		start = time.Now()
		keyword, err := s.store.KeywordSearch(ctx, project, question, s.topK)
		s.metrics.observeStage("keyword_search", start)
		if err != nil {
			return nil, err
		}
		hits = Merge(s.score, hits, keyword)
	}

	s.metrics.observeHits(len(hits))
	s.logger.Debug("retrieved context", "project", project, "chunks", len(hits))
	return hits, nil
}

func aboveThreshold(hits []store.ScoredChunk, threshold float64) []store.ScoredChunk {
	kept := make([]store.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			kept = append(kept, h)
		}
	}
	return kept
}
