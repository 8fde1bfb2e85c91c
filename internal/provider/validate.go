// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package provider

import (
	"context"
	"io"
	"net/http"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// ProviderName identifies a supported LLM provider for key validation.
type ProviderName string

const (
	ProviderAnthropic  ProviderName = "anthropic"
	ProviderOpenAI     ProviderName = "openai"
	ProviderGoogle     ProviderName = "google"
	ProviderOpenRouter ProviderName = "openrouter"
)

var modelEndpoints = map[ProviderName]string{
	ProviderAnthropic:  "https://api.anthropic.com/v1/models",
	ProviderOpenAI:     "https://api.openai.com/v1/models",
	ProviderGoogle:     "https://generativelanguage.googleapis.com/v1/models",
	ProviderOpenRouter: "https://openrouter.ai/api/v1/models",
}

// KeyValidator confirms an API key with a lightweight call to the provider's
// models endpoint.
type KeyValidator struct {
	Client *http.Client
	// Endpoints overrides the models URL per provider.
	Endpoints map[ProviderName]string
}

// ValidateKey checks key against the provider's public endpoint.
func ValidateKey(ctx context.Context, client *http.Client, provider ProviderName, key string) error {
	return KeyValidator{Client: client}.Validate(ctx, provider, key)
}

func (v KeyValidator) Validate(ctx context.Context, provider ProviderName, key string) error {
	url, ok := v.Endpoints[provider]
	if !ok {
		url, ok = modelEndpoints[provider]
	}
	if !ok {
		return akcioerr.Errorf(akcioerr.CodeProviderKeyInvalid, "unknown provider: %s", provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return akcioerr.Errorf(akcioerr.CodeProviderKeyCheckFailed, "building validation request: %w", err)
	}

	switch provider {
	case ProviderAnthropic:
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", "2023-06-01")
	case ProviderGoogle:
		// The Generative Language API only accepts the key as a query parameter.
		q := req.URL.Query()
		q.Set("key", key)
		req.URL.RawQuery = q.Encode()
	default:
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return akcioerr.Errorf(akcioerr.CodeProviderKeyCheckFailed, "validating %s key: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return akcioerr.Errorf(akcioerr.CodeProviderKeyInvalid, "invalid %s API key (HTTP %d)", provider, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return akcioerr.Errorf(akcioerr.CodeProviderKeyCheckFailed, "%s validation failed (HTTP %d)", provider, resp.StatusCode)
	}
	return nil
}
