// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package openrouter

import (
	"context"

	"github.com/akcio-dev/akcio/internal/provider"
	"github.com/akcio-dev/akcio/internal/provider/openai"
)

const baseURL = "https://openrouter.ai/api/v1"

// Config holds OpenRouter provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	// AppName and AppURL are sent as OpenRouter attribution headers.
	AppName string
	AppURL  string
}

// Provider talks to OpenRouter through its OpenAI-compatible API. Model IDs
// carry the upstream vendor, e.g. "anthropic/claude-sonnet-4-5".
type Provider struct {
	*openai.Provider
}

// New creates a new OpenRouter provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	base := baseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	headers := map[string]string{}
	if cfg.AppName != "" {
		headers["X-Title"] = cfg.AppName
	}
	if cfg.AppURL != "" {
		headers["HTTP-Referer"] = cfg.AppURL
	}

	inner, err := openai.New(openai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: base,
		Name:    "openrouter",
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{Provider: inner}, nil
}

// knownModels returns a curated set of popular models available via OpenRouter.
func knownModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{
			ID:       "anthropic/claude-sonnet-4-5",
			Name:     "Claude Sonnet 4.5",
			Provider: "openrouter",
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				SupportsThinking:  true,
				MaxContextTokens:  200000,
				MaxOutputTokens:   16000,
			},
		},
		{
			ID:       "openai/gpt-4.1",
			Name:     "GPT-4.1",
			Provider: "openrouter",
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  128000,
				MaxOutputTokens:   32768,
			},
		},
		{
			ID:       "google/gemini-2.5-flash",
			Name:     "Gemini 2.5 Flash",
			Provider: "openrouter",
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				SupportsThinking:  true,
				MaxContextTokens:  1000000,
				MaxOutputTokens:   65536,
			},
		},
		{
			ID:       "meta-llama/llama-3.3-70b-instruct",
			Name:     "Llama 3.3 70B Instruct",
			Provider: "openrouter",
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  131072,
				MaxOutputTokens:   8192,
			},
		},
	}
}

func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return knownModels(), nil
}
