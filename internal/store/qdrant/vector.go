// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package qdrant

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/akcio-dev/akcio/internal/store"
)

const defaultPort = 6334

func init() {
	store.RegisterVectorBackend("qdrant", func(cfg *store.StorageConfig) (store.VectorIndex, error) {
		return New(cfg.Qdrant)
	})
}

// Compile-time interface check.
var _ store.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements store.VectorIndex with one Qdrant collection per
// project. Chunk text and text_id live in the point payload.
type VectorIndex struct {
	client *qdrant.Client

	mu    sync.RWMutex
	specs map[string]collectionShape
}

// collectionShape caches what search and insert need from a collection.
type collectionShape struct {
	metric store.Metric
	dims   int
}

// New connects to Qdrant over gRPC.
func New(cfg store.QdrantConfig) (*VectorIndex, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", host, port, err)
	}

	return &VectorIndex{client: client, specs: map[string]collectionShape{}}, nil
}

func (v *VectorIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	ok, err := v.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking qdrant collection %s: %w", name, err)
	}
	return ok, nil
}

func (v *VectorIndex) CreateCollection(ctx context.Context, name string, spec store.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	err := v.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:       uint64(spec.Dimensions),
			Distance:   distanceOf(spec.Metric),
			HnswConfig: hnswConfig(spec.IndexParams),
		}),
	})
	if err != nil {
		return fmt.Errorf("creating qdrant collection %s: %w", name, err)
	}

	v.mu.Lock()
	v.specs[name] = collectionShape{metric: spec.Metric, dims: spec.Dimensions}
	v.mu.Unlock()
	return nil
}

func (v *VectorIndex) DropCollection(ctx context.Context, name string) error {
	if err := v.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("deleting qdrant collection %s: %w", name, err)
	}

	v.mu.Lock()
	delete(v.specs, name)
	v.mu.Unlock()
	return nil
}

// Insert upserts the batch and waits until it is applied, so Count sees it.
func (v *VectorIndex) Insert(ctx context.Context, name string, records []store.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	shape, err := v.shape(ctx, name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := r.Validate(shape.dims); err != nil {
			return err
		}
	}

	_, err = v.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         pointsFromRecords(records),
	})
	if err != nil {
		return fmt.Errorf("upserting %d points into %s: %w", len(records), name, err)
	}
	return nil
}

func (v *VectorIndex) Search(ctx context.Context, name string, query []float32, topK int) ([]store.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	shape, err := v.shape(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(query) != shape.dims {
		return nil, store.DimensionMismatch(len(query), shape.dims)
	}

	limit := uint64(topK)
	hits, err := v.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant collection %s: %w", name, err)
	}

	results := make([]store.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		payload := hit.GetPayload()
		results = append(results, store.ScoredChunk{
			TextID: payload["text_id"].GetStringValue(),
			Text:   payload["text"].GetStringValue(),
			Score:  similarity(shape.metric, float64(hit.GetScore())),
			Origin: store.OriginVector,
		})
	}
	return results, nil
}

func (v *VectorIndex) Count(ctx context.Context, name string) (int64, error) {
	n, err := v.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting qdrant collection %s: %w", name, err)
	}
	return int64(n), nil
}

func (v *VectorIndex) Close() error {
	return v.client.Close()
}

// shape returns the collection's metric and width, asking Qdrant on a cache miss.
func (v *VectorIndex) shape(ctx context.Context, name string) (collectionShape, error) {
	v.mu.RLock()
	s, ok := v.specs[name]
	v.mu.RUnlock()
	if ok {
		return s, nil
	}

	info, err := v.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return s, fmt.Errorf("loading qdrant collection %s: %w", name, err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	s = collectionShape{metric: metricOf(params.GetDistance()), dims: int(params.GetSize())}

	v.mu.Lock()
	v.specs[name] = s
	v.mu.Unlock()
	return s, nil
}

func distanceOf(m store.Metric) qdrant.Distance {
	switch m {
	case store.MetricCosine:
		return qdrant.Distance_Cosine
	case store.MetricL2:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Dot
	}
}

func metricOf(d qdrant.Distance) store.Metric {
	switch d {
	case qdrant.Distance_Cosine:
		return store.MetricCosine
	case qdrant.Distance_Euclid:
		return store.MetricL2
	default:
		return store.MetricIP
	}
}

// similarity maps a Qdrant score onto the store's higher-is-better scale.
// Euclid scores are distances; Dot and Cosine scores are already similarities.
func similarity(m store.Metric, score float64) float64 {
	if m == store.MetricL2 {
		return store.SimilarityFromDistance(store.MetricL2, score)
	}
	return score
}

// hnswConfig reads HNSW parameters (m, ef_construct) from index params.
// Other keys, such as the IVF nlist default, do not apply to Qdrant.
func hnswConfig(params map[string]any) *qdrant.HnswConfigDiff {
	m, hasM := uintParam(params, "m")
	ef, hasEF := uintParam(params, "ef_construct")
	if !hasM && !hasEF {
		return nil
	}
	cfg := &qdrant.HnswConfigDiff{}
	if hasM {
		cfg.M = qdrant.PtrOf(m)
	}
	if hasEF {
		cfg.EfConstruct = qdrant.PtrOf(ef)
	}
	return cfg
}

func uintParam(params map[string]any, key string) (uint64, bool) {
	switch v := params[key].(type) {
	case int:
		return uint64(v), v > 0
	case int64:
		return uint64(v), v > 0
	case uint64:
		return v, v > 0
	case float64:
		return uint64(v), v > 0
	default:
		return 0, false
	}
}

func pointsFromRecords(records []store.ChunkRecord) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text_id": r.TextID,
				"text":    r.Text,
			}),
		})
	}
	return points
}
