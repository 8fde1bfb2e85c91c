// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package storetest provides in-memory store backends with failure
// injection for tests of components built on the store interfaces.
package storetest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/akcio-dev/akcio/internal/store"
)

// Operation names accepted by FailOn.
const (
	OpHas    = "has"
	OpCreate = "create"
	OpDrop   = "drop"
	OpInsert = "insert"
	OpSearch = "search"
	OpCount  = "count"
	OpAppend = "append"
	OpList   = "list"
	OpDelete = "delete"
)

type failures struct {
	mu   sync.Mutex
	errs map[string]error
}

// FailOn makes every later call of op return err. A nil err clears it.
func (f *failures) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

func (f *failures) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

// VectorIndex is an in-memory store.VectorIndex using exact search.
type VectorIndex struct {
	failures

	mu          sync.Mutex
	collections map[string]*vectorCollection
	nextID      int64
	closed      bool
}

type vectorCollection struct {
	spec    store.CollectionSpec
	records []store.ChunkRecord
}

var _ store.VectorIndex = (*VectorIndex)(nil)

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{collections: map[string]*vectorCollection{}}
}

func (v *VectorIndex) HasCollection(_ context.Context, name string) (bool, error) {
	if err := v.check(OpHas); err != nil {
		return false, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.collections[name]
	return ok, nil
}

func (v *VectorIndex) CreateCollection(_ context.Context, name string, spec store.CollectionSpec) error {
	if err := v.check(OpCreate); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.collections[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	v.collections[name] = &vectorCollection{spec: spec}
	return nil
}

func (v *VectorIndex) DropCollection(_ context.Context, name string) error {
	if err := v.check(OpDrop); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.collections[name]; !ok {
		return fmt.Errorf("collection %s does not exist", name)
	}
	delete(v.collections, name)
	return nil
}

func (v *VectorIndex) Insert(_ context.Context, name string, records []store.ChunkRecord) error {
	if err := v.check(OpInsert); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[name]
	if !ok {
		return fmt.Errorf("collection %s does not exist", name)
	}
	for _, r := range records {
		if err := r.Validate(c.spec.Dimensions); err != nil {
			return err
		}
	}
	for _, r := range records {
		v.nextID++
		r.ID = strconv.FormatInt(v.nextID, 10)
		c.records = append(c.records, r)
	}
	return nil
}

func (v *VectorIndex) Search(_ context.Context, name string, query []float32, topK int) ([]store.ScoredChunk, error) {
	if err := v.check(OpSearch); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", name)
	}
	if len(query) != c.spec.Dimensions {
		return nil, store.DimensionMismatch(len(query), c.spec.Dimensions)
	}

	hits := make([]store.ScoredChunk, 0, len(c.records))
	for _, r := range c.records {
		hits = append(hits, store.ScoredChunk{
			TextID: r.TextID,
			Text:   r.Text,
			Score:  similarity(c.spec.Metric, query, r.Embedding),
			Origin: store.OriginVector,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (v *VectorIndex) Count(_ context.Context, name string) (int64, error) {
	if err := v.check(OpCount); err != nil {
		return 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %s does not exist", name)
	}
	return int64(len(c.records)), nil
}

// Records returns a copy of a collection's rows.
func (v *VectorIndex) Records(name string) []store.ChunkRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[name]
	if !ok {
		return nil
	}
	return append([]store.ChunkRecord(nil), c.records...)
}

// Spec returns the CollectionSpec a collection was created with.
func (v *VectorIndex) Spec(name string) (store.CollectionSpec, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[name]
	if !ok {
		return store.CollectionSpec{}, false
	}
	return c.spec, true
}

func (v *VectorIndex) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *VectorIndex) Close() error {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return nil
}

func similarity(m store.Metric, a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	var dot, na, nb, l2 float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
		l2 += (x - y) * (x - y)
	}
	switch m {
	case store.MetricL2:
		return store.SimilarityFromDistance(store.MetricL2, math.Sqrt(l2))
	case store.MetricCosine:
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	default:
		return dot
	}
}

// ScalarIndex is an in-memory store.ScalarIndex scoring by term overlap.
type ScalarIndex struct {
	failures

	mu        sync.Mutex
	indexes   map[string][]store.ChunkRecord
	refreshes int
}

var _ store.ScalarIndex = (*ScalarIndex)(nil)

func NewScalarIndex() *ScalarIndex {
	return &ScalarIndex{indexes: map[string][]store.ChunkRecord{}}
}

func (s *ScalarIndex) HasIndex(_ context.Context, name string) (bool, error) {
	if err := s.check(OpHas); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.indexes[name]
	return ok, nil
}

func (s *ScalarIndex) CreateIndex(_ context.Context, name string) error {
	if err := s.check(OpCreate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; ok {
		return fmt.Errorf("index %s already exists", name)
	}
	s.indexes[name] = []store.ChunkRecord{}
	return nil
}

func (s *ScalarIndex) DropIndex(_ context.Context, name string) error {
	if err := s.check(OpDrop); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return fmt.Errorf("index %s does not exist", name)
	}
	delete(s.indexes, name)
	return nil
}

func (s *ScalarIndex) Index(_ context.Context, name string, records []store.ChunkRecord) error {
	if err := s.check(OpInsert); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.indexes[name]
	if !ok {
		return fmt.Errorf("index %s does not exist", name)
	}
	s.indexes[name] = append(docs, records...)
	return nil
}

func (s *ScalarIndex) Search(_ context.Context, name, query string, topK int) ([]store.ScoredChunk, error) {
	if err := s.check(OpSearch); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("index %s does not exist", name)
	}

	terms := strings.Fields(strings.ToLower(query))
	var hits []store.ScoredChunk
	for _, d := range docs {
		text := strings.ToLower(d.Text)
		matched := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, store.ScoredChunk{
			TextID: d.TextID,
			Text:   d.Text,
			Score:  float64(matched) / float64(len(terms)),
			Origin: store.OriginKeyword,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *ScalarIndex) Refresh(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return fmt.Errorf("index %s does not exist", name)
	}
	s.refreshes++
	return nil
}

func (s *ScalarIndex) Count(_ context.Context, name string) (int64, error) {
	if err := s.check(OpCount); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.indexes[name]
	if !ok {
		return 0, fmt.Errorf("index %s does not exist", name)
	}
	return int64(len(docs)), nil
}

// Refreshes reports how many times Refresh succeeded.
func (s *ScalarIndex) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// Put replaces an index's documents, bypassing the manager. Tests use it to
// simulate divergence between backends.
func (s *ScalarIndex) Put(name string, records []store.ChunkRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[name] = append([]store.ChunkRecord(nil), records...)
}

func (s *ScalarIndex) Close() error { return nil }

// TurnStore is an in-memory store.TurnStore.
type TurnStore struct {
	failures

	mu     sync.Mutex
	tables map[string][]sessionTurn
}

type sessionTurn struct {
	session string
	turn    store.Turn
}

var _ store.TurnStore = (*TurnStore)(nil)

func NewTurnStore() *TurnStore {
	return &TurnStore{tables: map[string][]sessionTurn{}}
}

func (t *TurnStore) HasTable(_ context.Context, project string) (bool, error) {
	if err := t.check(OpHas); err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tables[project]
	return ok, nil
}

func (t *TurnStore) EnsureTable(_ context.Context, project string) error {
	if err := t.check(OpCreate); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tables[project]; !ok {
		t.tables[project] = []sessionTurn{}
	}
	return nil
}

func (t *TurnStore) DropTable(_ context.Context, project string) error {
	if err := t.check(OpDrop); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tables, project)
	return nil
}

func (t *TurnStore) AppendTurn(_ context.Context, project, session string, turn store.Turn) error {
	if err := t.check(OpAppend); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, ok := t.tables[project]
	if !ok {
		return fmt.Errorf("table %s does not exist", project)
	}
	t.tables[project] = append(rows, sessionTurn{session: session, turn: turn})
	return nil
}

func (t *TurnStore) ListTurns(_ context.Context, project, session string) ([]store.Turn, error) {
	if err := t.check(OpList); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, ok := t.tables[project]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", project)
	}
	out := []store.Turn{}
	for _, r := range rows {
		if r.session == session {
			out = append(out, r.turn)
		}
	}
	return out, nil
}

func (t *TurnStore) DeleteSession(_ context.Context, project, session string) error {
	if err := t.check(OpDelete); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, ok := t.tables[project]
	if !ok {
		return fmt.Errorf("table %s does not exist", project)
	}
	kept := rows[:0]
	for _, r := range rows {
		if r.session != session {
			kept = append(kept, r)
		}
	}
	t.tables[project] = kept
	return nil
}

func (t *TurnStore) Close() error { return nil }
