// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package project_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akcio-dev/akcio/internal/project"
	"github.com/akcio-dev/akcio/internal/store"
	"github.com/akcio-dev/akcio/internal/store/storetest"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

const dims = 3

var testSpec = store.CollectionSpec{Dimensions: dims, Metric: store.MetricIP, IndexType: "IVF_FLAT"}

func newManager(t *testing.T, scalar bool) (*project.Manager, *storetest.VectorIndex, *storetest.ScalarIndex) {
	t.Helper()
	vi := storetest.NewVectorIndex()
	opts := []project.Option{project.WithCollectionSpec(testSpec)}
	var si *storetest.ScalarIndex
	if scalar {
		si = storetest.NewScalarIndex()
		opts = append(opts, project.WithScalar(si))
	}
	m, err := project.New(vi, opts...)
	require.NoError(t, err)
	return m, vi, si
}

func records(n int) []store.ChunkRecord {
	out := make([]store.ChunkRecord, n)
	for i := range out {
		out[i] = store.ChunkRecord{
			TextID:    fmt.Sprintf("doc.md#%d", i*10),
			Text:      fmt.Sprintf("chunk number %d", i),
			Embedding: []float32{float32(i), 1, 0},
		}
	}
	return out
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"docs", "_private", "ut_test", "A1"} {
		assert.NoError(t, project.ValidateName(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "with-dash", "has space", "dot.name", "ünï"} {
		err := project.ValidateName(bad)
		assert.True(t, akcioerr.IsInvalidInput(err), bad)
	}
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := project.New(storetest.NewVectorIndex(), project.WithCollectionSpec(store.CollectionSpec{Metric: store.MetricIP}))
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeProjectCollectionSpecInvalid))

	_, err = project.New(nil)
	assert.Error(t, err)
}

func TestLifecycle(t *testing.T) {
	for _, scalar := range []bool{false, true} {
		t.Run(fmt.Sprintf("scalar=%v", scalar), func(t *testing.T) {
			ctx := context.Background()
			m, vi, _ := newManager(t, scalar)
			assert.Equal(t, scalar, m.ScalarEnabled())

			ok, err := m.Exists(ctx, "ut_test")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, m.Create(ctx, "ut_test"))
			ok, err = m.Exists(ctx, "ut_test")
			require.NoError(t, err)
			assert.True(t, ok)

			spec, found := vi.Spec("ut_test")
			require.True(t, found)
			assert.Equal(t, testSpec, spec)

			require.NoError(t, m.Insert(ctx, "ut_test", records(3)))
			n, err := m.Count(ctx, "ut_test")
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			require.NoError(t, m.Drop(ctx, "ut_test"))
			ok, err = m.Exists(ctx, "ut_test")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, true)
	require.NoError(t, m.Create(ctx, "docs"))

	err := m.Create(ctx, "docs")
	assert.True(t, akcioerr.IsAlreadyExists(err))
	assert.Equal(t, "docs", akcioerr.FieldsOf(err)["project"])
}

func TestDrop_NotFound(t *testing.T) {
	m, _, _ := newManager(t, false)
	err := m.Drop(context.Background(), "missing")
	assert.True(t, akcioerr.IsNotFound(err))
}

func TestInvalidNameTouchesNoBackend(t *testing.T) {
	ctx := context.Background()
	m, vi, _ := newManager(t, false)
	vi.FailOn(storetest.OpHas, errors.New("backend must not be called"))

	_, err := m.Exists(ctx, "bad-name")
	assert.True(t, akcioerr.IsInvalidInput(err))
	assert.True(t, akcioerr.IsInvalidInput(m.Create(ctx, "bad-name")))
	assert.True(t, akcioerr.IsInvalidInput(m.Drop(ctx, "bad-name")))
}

func TestEnsure(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, true)

	created, err := m.Ensure(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.Ensure(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestExists_DivergedBackendsAreInconsistent(t *testing.T) {
	ctx := context.Background()
	m, _, si := newManager(t, true)
	si.Put("orphan", nil)

	_, err := m.Exists(ctx, "orphan")
	require.Error(t, err)
	assert.True(t, akcioerr.IsInconsistent(err))
	fields := akcioerr.FieldsOf(err)
	assert.Equal(t, false, fields["vector_exists"])
	assert.Equal(t, true, fields["scalar_exists"])
}

func TestCreate_ScalarFailureIsInconsistent(t *testing.T) {
	ctx := context.Background()
	m, vi, si := newManager(t, true)
	si.FailOn(storetest.OpCreate, errors.New("fts unavailable"))

	err := m.Create(ctx, "docs")
	require.Error(t, err)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeProjectStateCreateInconsistent))

	// The vector collection stays; the project now reads as corrupted.
	_, hasVector := vi.Spec("docs")
	assert.True(t, hasVector)
	_, err = m.Exists(ctx, "docs")
	assert.True(t, akcioerr.IsInconsistent(err))
}

func TestDrop_ScalarFailureIsInconsistent(t *testing.T) {
	ctx := context.Background()
	m, _, si := newManager(t, true)
	require.NoError(t, m.Create(ctx, "docs"))
	si.FailOn(storetest.OpDrop, errors.New("locked"))

	err := m.Drop(ctx, "docs")
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeProjectStateDropInconsistent))

	si.FailOn(storetest.OpDrop, nil)
	_, err = m.Exists(ctx, "docs")
	assert.True(t, akcioerr.IsInconsistent(err), "one-sided drop must surface as corruption")
}

func TestDrop_VectorFailureKeepsProject(t *testing.T) {
	ctx := context.Background()
	m, vi, _ := newManager(t, true)
	require.NoError(t, m.Create(ctx, "docs"))
	vi.FailOn(storetest.OpDrop, errors.New("timeout"))

	err := m.Drop(ctx, "docs")
	require.Error(t, err)
	assert.Equal(t, "drop", akcioerr.FieldsOf(err)["operation"])
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeProjectStoreWriteFailure))
	assert.Equal(t, akcioerr.KindPersistence, akcioerr.KindOf(err))

	vi.FailOn(storetest.OpDrop, nil)
	ok, err := m.Exists(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCount(t *testing.T) {
	ctx := context.Background()

	t.Run("missing project", func(t *testing.T) {
		m, _, _ := newManager(t, false)
		_, err := m.Count(ctx, "docs")
		assert.True(t, akcioerr.IsNotFound(err))
	})

	t.Run("refreshes scalar before counting", func(t *testing.T) {
		m, _, si := newManager(t, true)
		require.NoError(t, m.Create(ctx, "docs"))
		require.NoError(t, m.Insert(ctx, "docs", records(2)))

		n, err := m.Count(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, 1, si.Refreshes())
	})

	t.Run("mismatch is a hard failure", func(t *testing.T) {
		m, _, si := newManager(t, true)
		require.NoError(t, m.Create(ctx, "docs"))
		require.NoError(t, m.Insert(ctx, "docs", records(2)))
		si.Put("docs", records(1))

		_, err := m.Count(ctx, "docs")
		require.Error(t, err)
		assert.True(t, akcioerr.HasCode(err, akcioerr.CodeProjectStateCountInconsistent))
		assert.EqualValues(t, 2, akcioerr.FieldsOf(err)["vector_count"])
		assert.EqualValues(t, 1, akcioerr.FieldsOf(err)["scalar_count"])
	})

	t.Run("backend failure is a retrieval error", func(t *testing.T) {
		m, vi, _ := newManager(t, false)
		require.NoError(t, m.Create(ctx, "docs"))
		vi.FailOn(storetest.OpCount, errors.New("connection lost"))

		_, err := m.Count(ctx, "docs")
		assert.Equal(t, akcioerr.KindRetrieval, akcioerr.KindOf(err))
	})
}

func TestInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors into scalar index", func(t *testing.T) {
		m, vi, si := newManager(t, true)
		require.NoError(t, m.Create(ctx, "docs"))
		require.NoError(t, m.Insert(ctx, "docs", records(4)))

		assert.Len(t, vi.Records("docs"), 4)
		n, err := si.Count(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		m, vi, _ := newManager(t, false)
		vi.FailOn(storetest.OpInsert, errors.New("must not be called"))
		assert.NoError(t, m.Insert(ctx, "docs", nil))
	})

	t.Run("rejects wrong dimension before writing", func(t *testing.T) {
		m, vi, _ := newManager(t, false)
		require.NoError(t, m.Create(ctx, "docs"))
		bad := records(2)
		bad[1].Embedding = []float32{1, 2}

		err := m.Insert(ctx, "docs", bad)
		assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingDimensionMismatch))
		assert.Empty(t, vi.Records("docs"))
	})

	t.Run("scalar failure keeps committed vector batch", func(t *testing.T) {
		m, vi, si := newManager(t, true)
		require.NoError(t, m.Create(ctx, "docs"))
		si.FailOn(storetest.OpInsert, errors.New("disk full"))

		err := m.Insert(ctx, "docs", records(2))
		assert.True(t, akcioerr.HasCode(err, akcioerr.CodeProjectStateInsertInconsistent))
		assert.Len(t, vi.Records("docs"), 2)

		_, err = m.Count(ctx, "docs")
		assert.True(t, akcioerr.IsInconsistent(err))
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	m, vi, _ := newManager(t, true)
	require.NoError(t, m.Create(ctx, "docs"))
	require.NoError(t, m.Insert(ctx, "docs", records(3)))

	hits, err := m.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc.md#20", hits[0].TextID)
	assert.Equal(t, store.OriginVector, hits[0].Origin)

	kw, err := m.KeywordSearch(ctx, "docs", "number 1", 5)
	require.NoError(t, err)
	require.NotEmpty(t, kw)
	assert.Equal(t, store.OriginKeyword, kw[0].Origin)

	vi.FailOn(storetest.OpSearch, errors.New("unavailable"))
	_, err = m.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeRetrievalVectorFailure))
}

func TestKeywordSearch_VectorOnly(t *testing.T) {
	m, _, _ := newManager(t, false)
	hits, err := m.KeywordSearch(context.Background(), "docs", "anything", 5)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestManager_ReopenWithDifferentDimensions(t *testing.T) {
	ctx := context.Background()
	m, vi, _ := newManager(t, false)
	require.NoError(t, m.Create(ctx, "docs"))
	require.NoError(t, m.Insert(ctx, "docs", records(1)))

	wider := testSpec
	wider.Dimensions = dims + 1
	reopened, err := project.New(vi, project.WithCollectionSpec(wider))
	require.NoError(t, err)

	rec := store.ChunkRecord{TextID: "doc.md#0", Text: "wide", Embedding: []float32{1, 0, 0, 0}}
	err = reopened.Insert(ctx, "docs", []store.ChunkRecord{rec})
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingDimensionMismatch))
	assert.Equal(t, akcioerr.KindEmbedding, akcioerr.KindOf(err))

	_, err = reopened.Search(ctx, "docs", []float32{1, 0, 0, 0}, 3)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeEmbeddingDimensionMismatch))
	assert.Equal(t, akcioerr.KindEmbedding, akcioerr.KindOf(err))
	assert.Len(t, vi.Records("docs"), 1)
}
