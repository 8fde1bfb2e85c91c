// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// tableKeyPrefix bounds the readable part of a table key. With the hash
// suffix and the longest backend decoration ("idx_history__"), names stay
// under PostgreSQL's 63-byte identifier limit.
const tableKeyPrefix = 32

// TableKey derives the base of the SQL table names that hold a project.
// SQL backends fold identifier case and PostgreSQL truncates long ones, so
// the key pairs a lowercased, bounded prefix with a hash of the exact name:
// projects "docs" and "Docs" get distinct tables.
func TableKey(project string) string {
	sum := sha256.Sum256([]byte(project))
	base := strings.ToLower(project)
	if len(base) > tableKeyPrefix {
		base = base[:tableKeyPrefix]
	}
	return base + "_" + hex.EncodeToString(sum[:8])
}
