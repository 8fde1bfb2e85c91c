// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package store

import (
	"sort"
	"sync"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

const defaultBackend = "sqlite"

// VectorFactory builds a VectorIndex from storage config.
type VectorFactory func(cfg *StorageConfig) (VectorIndex, error)

// ScalarFactory builds a ScalarIndex from storage config.
type ScalarFactory func(cfg *StorageConfig) (ScalarIndex, error)

// TurnFactory builds a TurnStore from storage config.
type TurnFactory func(cfg *StorageConfig) (TurnStore, error)

var (
	vectorFactories = map[string]VectorFactory{}
	scalarFactories = map[string]ScalarFactory{}
	turnFactories   = map[string]TurnFactory{}
	factoriesMu     sync.RWMutex
)

// RegisterVectorBackend registers a named vector backend. Backend packages
// call the Register functions from init(). They are goroutine-safe.
func RegisterVectorBackend(name string, f VectorFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	vectorFactories[name] = f
}

func RegisterScalarBackend(name string, f ScalarFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	scalarFactories[name] = f
}

func RegisterTurnBackend(name string, f TurnFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	turnFactories[name] = f
}

// NewVectorIndex builds the configured vector backend.
func NewVectorIndex(cfg *StorageConfig) (VectorIndex, error) {
	name := resolveBackend(cfg.VectorBackend)

	factoriesMu.RLock()
	f, ok := vectorFactories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, unsupported("vector", name)
	}
	return f(cfg)
}

// NewScalarIndex builds the configured scalar backend.
func NewScalarIndex(cfg *StorageConfig) (ScalarIndex, error) {
	name := resolveBackend(cfg.ScalarBackend)

	factoriesMu.RLock()
	f, ok := scalarFactories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, unsupported("scalar", name)
	}
	return f(cfg)
}

// NewTurnStore builds the configured memory backend.
func NewTurnStore(cfg *StorageConfig) (TurnStore, error) {
	name := resolveBackend(cfg.TurnBackend)

	factoriesMu.RLock()
	f, ok := turnFactories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, unsupported("memory", name)
	}
	return f(cfg)
}

// Backends lists registered backend names per kind, sorted.
func Backends() map[string][]string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := map[string][]string{
		"vector": keys(vectorFactories),
		"scalar": keys(scalarFactories),
		"memory": keys(turnFactories),
	}
	return out
}

func resolveBackend(name string) string {
	if name == "" {
		return defaultBackend
	}
	return name
}

func unsupported(kind, name string) error {
	return akcioerr.New(akcioerr.CodeStoreBackendUnsupported,
		"unsupported "+kind+" backend: "+name,
		akcioerr.FieldBackend(name))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
