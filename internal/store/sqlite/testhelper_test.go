// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/akcio-dev/akcio/internal/store"
)

// testDBPath returns a SQLite database path inside a per-test temp dir.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

func testSpec(metric store.Metric) store.CollectionSpec {
	return store.CollectionSpec{
		Dimensions:  3,
		Metric:      metric,
		IndexType:   "IVF_FLAT",
		IndexParams: map[string]any{"nlist": float64(1024)},
	}
}

func record(textID, text string, vec ...float32) store.ChunkRecord {
	return store.ChunkRecord{TextID: textID, Text: text, Embedding: vec}
}
