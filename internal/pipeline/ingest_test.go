// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/pipeline"
	"github.com/akcio-dev/akcio/internal/prompt"
	"github.com/akcio-dev/akcio/internal/store"
	"github.com/akcio-dev/akcio/internal/store/storetest"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

var threeChunks = sliceChunker{texts: []string{
	"Akcio answers questions about project documents.",
	"Documents are chunked and embedded before storage.",
	"Memory keeps every turn of a session.",
}}

func TestIngest_CreatesProjectAndCountsChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	ing := pipeline.NewIngest(f.manager, threeChunks, hashEmbedder())

	n, err := ing.Insert(ctx, "docs/intro.md", "ut_test", chunker.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := f.manager.Count(ctx, "ut_test")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	recs := f.vector.Records("ut_test")
	require.Len(t, recs, 3)
	assert.Equal(t, "docs/intro.md#0", recs[0].TextID)
	assert.True(t, strings.HasPrefix(recs[1].TextID, "docs/intro.md#"))
	assert.Len(t, recs[0].Embedding, dims)
}

func TestIngest_ReingestAppendsDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	ing := pipeline.NewIngest(f.manager, threeChunks, hashEmbedder())

	_, err := ing.Insert(ctx, "a.md", "p1", chunker.SourceFile)
	require.NoError(t, err)
	n, err := ing.Insert(ctx, "a.md", "p1", chunker.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := f.manager.Count(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestIngest_Batches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	texts := make([]string, 7)
	for i := range texts {
		texts[i] = strings.Repeat("word ", i+1)
	}
	ing := pipeline.NewIngest(f.manager, sliceChunker{texts: texts}, hashEmbedder(), pipeline.WithBatchSize(3))

	n, err := ing.Insert(ctx, "b.md", "p1", chunker.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestIngest_SourceUnreadable(t *testing.T) {
	ctx := context.Background()

	t.Run("load failure", func(t *testing.T) {
		f := newFixture(t, false)
		ing := pipeline.NewIngest(f.manager, sliceChunker{loadErr: errors.New("no such file")}, hashEmbedder())
		_, err := ing.Insert(ctx, "missing.md", "p1", chunker.SourceFile)
		assert.Equal(t, akcioerr.KindSourceUnreadable, akcioerr.KindOf(err))
	})

	t.Run("real chunker on missing file", func(t *testing.T) {
		f := newFixture(t, false)
		ing := pipeline.NewIngest(f.manager, chunker.New(), hashEmbedder())
		_, err := ing.Insert(ctx, "/definitely/not/here.md", "p1", chunker.SourceFile)
		assert.True(t, akcioerr.HasCode(err, akcioerr.CodeIngestSourceUnreadable))
	})

	t.Run("iterator failure keeps earlier batches", func(t *testing.T) {
		f := newFixture(t, false)
		c := threeChunks
		c.failAt, c.failErr = 2, errors.New("connection reset")
		ing := pipeline.NewIngest(f.manager, c, hashEmbedder(), pipeline.WithBatchSize(1))

		_, err := ing.Insert(ctx, "a.md", "p1", chunker.SourceURL)
		assert.Equal(t, akcioerr.KindSourceUnreadable, akcioerr.KindOf(err))
		assert.Equal(t, 2, akcioerr.FieldsOf(err)["written"])
		assert.Len(t, f.vector.Records("p1"), 2)
	})
}

func TestIngest_EmbeddingFailureIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	e := &failingEmbedder{Embedder: hashEmbedder(), failN: 1}
	ing := pipeline.NewIngest(f.manager, threeChunks, e, pipeline.WithBatchSize(1))

	_, err := ing.Insert(ctx, "a.md", "p1", chunker.SourceFile)
	require.Error(t, err)
	assert.Equal(t, akcioerr.KindEmbedding, akcioerr.KindOf(err))
	assert.Len(t, f.vector.Records("p1"), 1)
}

func TestIngest_DimensionMismatch(t *testing.T) {
	f := newFixture(t, false)
	ing := pipeline.NewIngest(f.manager, threeChunks, shortEmbedder{})

	_, err := ing.Insert(context.Background(), "a.md", "p1", chunker.SourceFile)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingDimensionMismatch))
	assert.Empty(t, f.vector.Records("p1"))
}

func TestIngest_WriteFailure(t *testing.T) {
	f := newFixture(t, false)
	f.vector.FailOn(storetest.OpInsert, errors.New("disk full"))
	ing := pipeline.NewIngest(f.manager, threeChunks, hashEmbedder())

	_, err := ing.Insert(context.Background(), "a.md", "p1", chunker.SourceFile)
	require.Error(t, err)
	assert.Equal(t, "p1", akcioerr.FieldsOf(err)["project"])
}

func TestIngest_InsertTextWithRealChunker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	ing := pipeline.NewIngest(f.manager, chunker.New(), hashEmbedder(), pipeline.WithChunkSize(8))

	text := "First sentence is here. Second sentence follows it.\n\nA new paragraph starts."
	n, err := ing.InsertText(ctx, "notes", text, "p1")
	require.NoError(t, err)
	assert.Greater(t, n, int64(1))

	for _, r := range f.vector.Records("p1") {
		assert.True(t, strings.HasPrefix(r.TextID, "notes#"), r.TextID)
	}
}

func TestIngest_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := pipeline.NewMetrics(reg)
	f := newFixture(t, false)
	ing := pipeline.NewIngest(f.manager, threeChunks, hashEmbedder(), pipeline.WithIngestMetrics(m))

	_, err := ing.Insert(context.Background(), "a.md", "p1", chunker.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, 3.0, pipeline.ChunksIngested(m, "p1"))
	assert.Equal(t, 1.0, pipeline.Requests(m, "ingest", "ok"))
}

func TestIngest_InvalidProject(t *testing.T) {
	f := newFixture(t, false)
	ing := pipeline.NewIngest(f.manager, threeChunks, hashEmbedder())
	_, err := ing.Insert(context.Background(), "a.md", "not-valid", chunker.SourceFile)
	assert.True(t, akcioerr.IsInvalidInput(err))
}

func TestTextID(t *testing.T) {
	assert.Equal(t, "a.md#42", pipeline.TextID("a.md", 42))

	long := "https://example.com/" + strings.Repeat("segment/", 80)
	id := pipeline.TextID(long, 1234)
	assert.LessOrEqual(t, utf8.RuneCountInString(id), store.MaxTextIDLength)
	assert.True(t, strings.HasPrefix(id, "https://example.com/"))
	assert.True(t, strings.HasSuffix(id, "#1234"))
	assert.Equal(t, id, pipeline.TextID(long, 1234), "shortening is stable")
	assert.NotEqual(t, id, pipeline.TextID(long+"x", 1234))
}

func TestTextLabel(t *testing.T) {
	a := pipeline.TextLabel("Apples grow on trees.")
	assert.True(t, strings.HasPrefix(a, "text:"), a)
	assert.Equal(t, a, pipeline.TextLabel("Apples grow on trees."))
	assert.NotEqual(t, a, pipeline.TextLabel("Apples are red."))
}

func TestIngest_UnnamedTextsKeepDistinctTextIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	ing := pipeline.NewIngest(f.manager, chunker.New(), hashEmbedder())

	_, err := ing.InsertText(ctx, "", "Apples grow on trees.", "p1")
	require.NoError(t, err)
	_, err = ing.Insert(ctx, "Apples are red.", "p1", chunker.SourceText)
	require.NoError(t, err)

	recs := f.vector.Records("p1")
	require.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].TextID, recs[1].TextID)

	hits, err := pipeline.NewSearch(f.manager, hashEmbedder(), prompt.Default(), &recordingGenerator{},
		pipeline.WithThreshold(-1)).Retrieve(ctx, "apples", "p1")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
