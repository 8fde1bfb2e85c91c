// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/akcio-dev/akcio/internal/store"
	"github.com/akcio-dev/akcio/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnStore_AppendListClearDrop(t *testing.T) {
	ctx := context.Background()
	ts, err := sqlite.NewTurnStore(testDBPath(t, "memory"))
	require.NoError(t, err)
	defer func() { _ = ts.Close() }()

	ok, err := ts.HasTable(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ts.EnsureTable(ctx, "p1"))
	require.NoError(t, ts.EnsureTable(ctx, "p1"))

	ok, err = ts.HasTable(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ts.AppendTurn(ctx, "p1", "s1", store.Turn{Question: "q1", Answer: "a1"}))
	require.NoError(t, ts.AppendTurn(ctx, "p1", "s2", store.Turn{Question: "other", Answer: "x"}))
	require.NoError(t, ts.AppendTurn(ctx, "p1", "s1", store.Turn{Question: "q2", Answer: "a2"}))

	turns, err := ts.ListTurns(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []store.Turn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}, turns)

	require.NoError(t, ts.DeleteSession(ctx, "p1", "s1"))
	turns, err = ts.ListTurns(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = ts.ListTurns(ctx, "p1", "s2")
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	require.NoError(t, ts.DropTable(ctx, "p1"))
	ok, err = ts.HasTable(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, ts.DropTable(ctx, "p1"))
}

func TestTurnStore_CaseDistinctProjects(t *testing.T) {
	ctx := context.Background()
	ts, err := sqlite.NewTurnStore(testDBPath(t, "memory"))
	require.NoError(t, err)
	defer func() { _ = ts.Close() }()

	require.NoError(t, ts.EnsureTable(ctx, "foo"))
	require.NoError(t, ts.AppendTurn(ctx, "foo", "s1", store.Turn{Question: "secret", Answer: "from foo"}))

	ok, err := ts.HasTable(ctx, "Foo")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ts.EnsureTable(ctx, "Foo"))
	require.NoError(t, ts.AppendTurn(ctx, "Foo", "s1", store.Turn{Question: "hello", Answer: "from Foo"}))

	turns, err := ts.ListTurns(ctx, "Foo", "s1")
	require.NoError(t, err)
	assert.Equal(t, []store.Turn{{Question: "hello", Answer: "from Foo"}}, turns)

	turns, err = ts.ListTurns(ctx, "foo", "s1")
	require.NoError(t, err)
	assert.Equal(t, []store.Turn{{Question: "secret", Answer: "from foo"}}, turns)

	require.NoError(t, ts.DropTable(ctx, "Foo"))
	ok, err = ts.HasTable(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, ok)
}
