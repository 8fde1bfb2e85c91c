// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package embedding_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akcio-dev/akcio/internal/embedding"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

var _ embedding.Embedder = (*embedding.Hash)(nil)
var _ embedding.Embedder = (*embedding.OpenAI)(nil)
var _ embedding.Embedder = (*embedding.Google)(nil)

type staticEmbedder struct {
	vec []float32
	err error
}

func (s staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return append([]float32(nil), s.vec...), s.err
}
func (s staticEmbedder) Dimensions() int { return len(s.vec) }
func (s staticEmbedder) Name() string    { return "static" }

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestChecked_PassesThrough(t *testing.T) {
	c := embedding.Check(staticEmbedder{vec: []float32{3, 4}}, 2, false)
	vec, err := c.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, vec)
	assert.Equal(t, 2, c.Dimensions())
	assert.Equal(t, "static", c.Name())
}

func TestChecked_Normalizes(t *testing.T) {
	c := embedding.Check(staticEmbedder{vec: []float32{3, 4}}, 2, true)
	vec, err := c.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestChecked_DimensionMismatch(t *testing.T) {
	c := embedding.Check(staticEmbedder{vec: []float32{1, 2, 3}}, 2, false)
	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingDimensionMismatch))
	assert.Equal(t, akcioerr.KindEmbedding, akcioerr.KindOf(err))
}

func TestChecked_UpstreamFailure(t *testing.T) {
	boom := errors.New("rate limited")
	c := embedding.Check(staticEmbedder{err: boom}, 2, false)
	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingVectorFailure))
	assert.Equal(t, "static", akcioerr.FieldsOf(err)["provider"])
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	e, err := embedding.New(ctx, embedding.Config{Dimensions: 16})
	require.NoError(t, err)
	assert.Equal(t, "hash", e.Name())
	assert.Equal(t, 16, e.Dimensions())

	_, err = embedding.New(ctx, embedding.Config{Provider: "hash"})
	assert.True(t, akcioerr.IsInvalidInput(err))

	_, err = embedding.New(ctx, embedding.Config{Provider: "bert", Dimensions: 8})
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingConfigInvalid))

	_, err = embedding.New(ctx, embedding.Config{Provider: "openai", Dimensions: 8})
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingConfigInvalid))

	_, err = embedding.New(ctx, embedding.Config{Provider: "google", Dimensions: 8})
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingConfigInvalid))
}

func TestNormalize_ZeroVector(t *testing.T) {
	vec := []float32{0, 0}
	embedding.Normalize(vec)
	assert.Equal(t, []float32{0, 0}, vec)
}
