// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package embedding

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAI embeds text with the OpenAI embeddings endpoint.
type OpenAI struct {
	client openaisdk.Client
	model  string
	dims   int
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, akcioerr.New(akcioerr.CodeEmbeddingConfigInvalid, "openai embeddings: missing api_key",
			akcioerr.FieldProvider("openai"))
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{client: openaisdk.NewClient(opts...), model: model, dims: cfg.Dimensions}, nil
}

func (o *OpenAI) Name() string    { return "openai" }
func (o *OpenAI) Dimensions() int { return o.dims }

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(o.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
	}
	if o.dims > 0 {
		params.Dimensions = param.NewOpt(int64(o.dims))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
