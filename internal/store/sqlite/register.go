// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package sqlite

import (
	"path/filepath"

	"github.com/akcio-dev/akcio/internal/store"
)

// Database file names under StorageConfig.DataDir.
const (
	VectorDBFile  = "vectors.db"
	KeywordDBFile = "keywords.db"
	MemoryDBFile  = "memory.db"
)

func init() {
	store.RegisterVectorBackend("sqlite", func(cfg *store.StorageConfig) (store.VectorIndex, error) {
		return NewVectorIndex(filepath.Join(cfg.DataDir, VectorDBFile))
	})
	store.RegisterScalarBackend("sqlite", func(cfg *store.StorageConfig) (store.ScalarIndex, error) {
		return NewScalarIndex(filepath.Join(cfg.DataDir, KeywordDBFile))
	})
	store.RegisterTurnBackend("sqlite", func(cfg *store.StorageConfig) (store.TurnStore, error) {
		return NewTurnStore(filepath.Join(cfg.DataDir, MemoryDBFile))
	})
}
