// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package store

import "context"

// VectorIndex holds one similarity-searchable chunk collection per project.
// Collection names are project names and are validated by the caller.
type VectorIndex interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, spec CollectionSpec) error
	DropCollection(ctx context.Context, name string) error

	// Insert writes records in one batch. IDs are assigned by the backend.
	Insert(ctx context.Context, name string, records []ChunkRecord) error
	// Search returns at most topK chunks ordered by descending Score.
	Search(ctx context.Context, name string, query []float32, topK int) ([]ScoredChunk, error)
	// Count reflects every Insert that has returned.
	Count(ctx context.Context, name string) (int64, error)
	Close() error
}

// ScalarIndex is the optional keyword mirror of a project's chunks.
type ScalarIndex interface {
	HasIndex(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string) error
	DropIndex(ctx context.Context, name string) error

	Index(ctx context.Context, name string, records []ChunkRecord) error
	Search(ctx context.Context, name string, query string, topK int) ([]ScoredChunk, error)
	// Refresh makes prior Index calls visible to Count and Search.
	Refresh(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int64, error)
	Close() error
}

// TurnStore persists conversation turns in one table per project.
type TurnStore interface {
	HasTable(ctx context.Context, project string) (bool, error)
	EnsureTable(ctx context.Context, project string) error
	DropTable(ctx context.Context, project string) error

	// AppendTurn commits a single turn.
	AppendTurn(ctx context.Context, project, session string, turn Turn) error
	// ListTurns returns the session's turns in insertion order.
	ListTurns(ctx context.Context, project, session string) ([]Turn, error)
	DeleteSession(ctx context.Context, project, session string) error
	Close() error
}
