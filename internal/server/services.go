// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package server

import (
	"context"

	"github.com/akcio-dev/akcio/internal/assistant"
	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/store"
	"github.com/akcio-dev/akcio/pkg/health"
)

// Assistant is the facade the routes are served from.
type Assistant interface {
	Insert(ctx context.Context, source, project string, sourceType chunker.SourceType) (int64, error)
	InsertText(ctx context.Context, name, text, project string) (int64, error)
	Chat(ctx context.Context, session, project, question string) (string, error)
	Retrieve(ctx context.Context, question, project string) ([]store.ScoredChunk, error)
	Check(ctx context.Context, project string) (assistant.Status, error)
	Count(ctx context.Context, project string) (int64, error)
	Drop(ctx context.Context, project string) error
	GetHistory(ctx context.Context, project, session string) ([]store.Turn, error)
	ClearHistory(ctx context.Context, project, session string) ([]store.Turn, error)
}

var _ Assistant = (*assistant.Service)(nil)

// ProviderHealth reports per-provider health. Optional.
type ProviderHealth interface {
	Health(ctx context.Context) []health.Provider
}
