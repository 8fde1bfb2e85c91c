// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package store

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Chunk schema limits, in characters.
const (
	MaxTextIDLength = 500
	MaxTextLength   = 1000
)

// ChunkRecord is one row of a project's chunk collection.
type ChunkRecord struct {
	ID        string
	TextID    string
	Text      string
	Embedding []float32
}

// Validate checks the record against the chunk schema for dimension dims.
func (r ChunkRecord) Validate(dims int) error {
	if r.TextID == "" {
		return akcioerr.New(akcioerr.CodeProjectRecordInvalid, "chunk text_id is empty")
	}
	if n := utf8.RuneCountInString(r.TextID); n > MaxTextIDLength {
		return akcioerr.New(akcioerr.CodeProjectRecordInvalid,
			fmt.Sprintf("chunk text_id has %d characters, limit is %d", n, MaxTextIDLength),
			akcioerr.Field("text_id_prefix", prefix(r.TextID, 64)))
	}
	if n := utf8.RuneCountInString(r.Text); n > MaxTextLength {
		return akcioerr.New(akcioerr.CodeProjectRecordInvalid,
			fmt.Sprintf("chunk text has %d characters, limit is %d", n, MaxTextLength),
			akcioerr.Field("text_id", r.TextID))
	}
	if dims > 0 && len(r.Embedding) != dims {
		return DimensionMismatch(len(r.Embedding), dims, akcioerr.Field("text_id", r.TextID))
	}
	return nil
}

// DimensionMismatch reports a vector whose width differs from the width the
// collection was created with.
func DimensionMismatch(got, want int, fields ...akcioerr.Attr) error {
	return akcioerr.New(akcioerr.CodeEmbeddingDimensionMismatch,
		fmt.Sprintf("vector has %d dimensions, collection has %d", got, want),
		append(fields, akcioerr.Field("got", got), akcioerr.Field("want", want))...)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Origin records which index produced a ScoredChunk.
type Origin string

const (
	OriginVector  Origin = "vector"
	OriginKeyword Origin = "keyword"
)

// ScoredChunk is a retrieval hit. Score is a similarity: higher is better.
type ScoredChunk struct {
	TextID string  `json:"text_id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Origin Origin  `json:"origin"`
}

// Metric is the similarity metric of a vector collection.
type Metric string

const (
	MetricIP     Metric = "ip"
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// ParseMetric accepts the lower- and upper-case spellings used in config files.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "ip", "IP":
		return MetricIP, nil
	case "cosine", "COSINE":
		return MetricCosine, nil
	case "l2", "L2":
		return MetricL2, nil
	default:
		return "", akcioerr.Errorf(akcioerr.CodeProjectCollectionSpecInvalid, "unknown similarity metric %q", s)
	}
}

// SimilarityFromDistance converts a backend distance into a similarity score.
// Cosine distances map to 1-d; euclidean distances map to 1/(1+d).
func SimilarityFromDistance(m Metric, distance float64) float64 {
	if m == MetricL2 {
		return 1 / (1 + distance)
	}
	return 1 - distance
}

// CollectionSpec describes the schema and index of a vector collection.
type CollectionSpec struct {
	Dimensions  int            `json:"dimensions"`
	Metric      Metric         `json:"metric"`
	IndexType   string         `json:"index_type"`
	IndexParams map[string]any `json:"index_params,omitempty"`
}

// Validate reports a spec that no backend can build.
func (s CollectionSpec) Validate() error {
	if s.Dimensions <= 0 {
		return akcioerr.Errorf(akcioerr.CodeProjectCollectionSpecInvalid, "collection dimensions must be positive, got %d", s.Dimensions)
	}
	if _, err := ParseMetric(string(s.Metric)); err != nil {
		return err
	}
	return nil
}

// Turn is one question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type turnPayload struct {
	Type string    `json:"type"`
	Data [2]string `json:"data"`
}

// EncodeTurn renders the persisted message payload {"type":"chat","data":[q,a]}.
func EncodeTurn(t Turn) (string, error) {
	b, err := json.Marshal(turnPayload{Type: "chat", Data: [2]string{t.Question, t.Answer}})
	if err != nil {
		return "", fmt.Errorf("encoding turn: %w", err)
	}
	return string(b), nil
}

// DecodeTurn parses a payload written by EncodeTurn.
func DecodeTurn(raw string) (Turn, error) {
	var p turnPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Turn{}, akcioerr.Wrap(err, akcioerr.CodeMemoryPayloadInvalid, "decoding turn payload")
	}
	if p.Type != "chat" {
		return Turn{}, akcioerr.Errorf(akcioerr.CodeMemoryPayloadInvalid, "unexpected turn payload type %q", p.Type)
	}
	return Turn{Question: p.Data[0], Answer: p.Data[1]}, nil
}
