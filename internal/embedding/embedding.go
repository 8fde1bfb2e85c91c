// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package embedding turns text into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"
	"math"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Embedder maps text to a vector. Output is deterministic for a given model
// and input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
}

// Config selects and configures an embedder.
type Config struct {
	Provider   string // "hash" (default), "openai" or "google"
	Model      string
	Dimensions int
	Normalize  bool
	APIKey     string
	BaseURL    string
}

// New builds the configured embedder wrapped in a Checked guard.
func New(ctx context.Context, cfg Config) (*Checked, error) {
	if cfg.Dimensions <= 0 {
		return nil, akcioerr.Errorf(akcioerr.CodeEmbeddingConfigInvalid, "embedding dimensions must be positive, got %d", cfg.Dimensions)
	}

	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case "", "hash":
		inner = NewHash(cfg.Dimensions)
	case "openai":
		inner, err = NewOpenAI(cfg)
	case "google":
		inner, err = NewGoogle(ctx, cfg)
	default:
		return nil, akcioerr.New(akcioerr.CodeEmbeddingConfigInvalid,
			fmt.Sprintf("unknown embedding provider %q", cfg.Provider),
			akcioerr.FieldProvider(cfg.Provider))
	}
	if err != nil {
		return nil, err
	}
	return Check(inner, cfg.Dimensions, cfg.Normalize), nil
}

// Checked guards an embedder: upstream failures become embedding errors and
// vectors of the wrong dimension are rejected rather than stored.
type Checked struct {
	inner     Embedder
	dims      int
	normalize bool
}

// Compile-time interface check.
var _ Embedder = (*Checked)(nil)

func Check(inner Embedder, dims int, normalize bool) *Checked {
	return &Checked{inner: inner, dims: dims, normalize: normalize}
}

func (c *Checked) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, akcioerr.Classify(err, akcioerr.CodeEmbeddingVectorFailure, "embedding text",
			akcioerr.FieldProvider(c.inner.Name()))
	}
	if len(vec) != c.dims {
		return nil, akcioerr.New(akcioerr.CodeEmbeddingDimensionMismatch,
			fmt.Sprintf("embedder %s returned %d dimensions, store expects %d", c.inner.Name(), len(vec), c.dims),
			akcioerr.FieldProvider(c.inner.Name()))
	}
	if c.normalize {
		Normalize(vec)
	}
	return vec, nil
}

func (c *Checked) Dimensions() int { return c.dims }
func (c *Checked) Name() string    { return c.inner.Name() }

// Normalize scales vec to unit L2 length in place. Zero vectors are left as is.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
