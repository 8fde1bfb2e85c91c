// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

const defaultGoogleModel = "text-embedding-004"

// Google embeds text with the Gemini embedContent API.
type Google struct {
	client *genai.Client
	model  string
	dims   int
}

func NewGoogle(ctx context.Context, cfg Config) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, akcioerr.New(akcioerr.CodeEmbeddingConfigInvalid, "google embeddings: missing api_key",
			akcioerr.FieldProvider("google"))
	}

	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, akcioerr.Wrap(err, akcioerr.CodeEmbeddingConfigInvalid, "google embeddings: creating client",
			akcioerr.FieldProvider("google"))
	}

	model := cfg.Model
	if model == "" {
		model = defaultGoogleModel
	}
	return &Google{client: client, model: model, dims: cfg.Dimensions}, nil
}

func (g *Google) Name() string    { return "google" }
func (g *Google) Dimensions() int { return g.dims }

func (g *Google) Embed(ctx context.Context, text string) ([]float32, error) {
	var cfg *genai.EmbedContentConfig
	if g.dims > 0 {
		d := int32(g.dims)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &d}
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("google embeddings: empty response")
	}
	return resp.Embeddings[0].Values, nil
}
