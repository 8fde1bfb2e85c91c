// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package store

// StorageConfig selects and configures the backends built by the factory.
type StorageConfig struct {
	DataDir string // directory for embedded backends (sqlite, bolt)

	VectorBackend string // "sqlite" (default) or "qdrant"
	ScalarBackend string // "sqlite" (default)
	TurnBackend   string // "sqlite" (default), "postgres" or "bolt"

	Qdrant QdrantConfig
	// PostgresDSN is the connection string for the postgres turn store.
	PostgresDSN string
}

// QdrantConfig addresses a Qdrant server over gRPC.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}
