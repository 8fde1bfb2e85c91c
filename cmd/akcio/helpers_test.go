// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akcio-dev/akcio/internal/config"
	"github.com/akcio-dev/akcio/internal/provider"
)

// scriptedProvider answers every request with a fixed text.
type scriptedProvider struct {
	answer   string
	requests []provider.ChatRequest
}

func (p *scriptedProvider) Name() string                   { return "openai" }
func (p *scriptedProvider) Available(context.Context) bool { return true }
func (p *scriptedProvider) Close() error                   { return nil }

func (p *scriptedProvider) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}

func (p *scriptedProvider) Status(context.Context) (provider.ProviderStatus, error) {
	return provider.ProviderStatus{Available: true, Provider: "openai"}, nil
}

func (p *scriptedProvider) Chat(_ context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	p.requests = append(p.requests, req)
	ch := make(chan provider.ChatEvent, 2)
	ch <- provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: p.answer}
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
	close(ch)
	return ch, nil
}

// useScriptedProvider swaps the openai factory for the test's duration.
func useScriptedProvider(t *testing.T, answer string) *scriptedProvider {
	t.Helper()
	p := &scriptedProvider{answer: answer}
	orig := providerFactories["openai"]
	providerFactories["openai"] = func(context.Context, config.ProviderConfig) (provider.Provider, error) {
		return p, nil
	}
	t.Cleanup(func() { providerFactories["openai"] = orig })
	return p
}

// writeTestConfig writes a config using the offline hash embedder and the
// sqlite backends under a temporary data directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	return writeTestConfigWithKey(t, "test-key")
}

func writeTestConfigWithKey(t *testing.T, apiKey string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `data_dir: ` + filepath.Join(dir, "data") + `
embedding:
  provider: hash
  dimensions: 64
retrieval:
  top_k: 3
  threshold: -1
providers:
  openai:
    api_key: ` + apiKey + `
models:
  default: openai/test-model
`
	path := filepath.Join(dir, "akcio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
