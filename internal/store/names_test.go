// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package store_test

import (
	"strings"
	"testing"

	"github.com/akcio-dev/akcio/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestTableKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, store.TableKey("docs"), store.TableKey("docs"))
		assert.True(t, strings.HasPrefix(store.TableKey("docs"), "docs_"))
	})

	t.Run("case variants get distinct keys", func(t *testing.T) {
		lower, upper := store.TableKey("docs"), store.TableKey("Docs")
		assert.NotEqual(t, lower, upper)
		assert.NotEqual(t, strings.ToLower(lower), strings.ToLower(upper))
	})

	t.Run("long names stay within identifier limits", func(t *testing.T) {
		a := strings.Repeat("p", 60) + "_alpha"
		b := strings.Repeat("p", 60) + "_beta"
		assert.NotEqual(t, store.TableKey(a), store.TableKey(b))
		for _, key := range []string{store.TableKey(a), store.TableKey(b)} {
			assert.LessOrEqual(t, len("idx_history__"+key), 63)
		}
	})
}
