// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Hash is an offline embedder using signed feature hashing of words and word
// bigrams. It needs no model or network and is the default for local use.
type Hash struct {
	dims int
}

func NewHash(dims int) *Hash { return &Hash{dims: dims} }

func (h *Hash) Name() string    { return "hash" }
func (h *Hash) Dimensions() int { return h.dims }

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	for i, w := range words {
		h.add(vec, w, 1)
		if i > 0 {
			h.add(vec, words[i-1]+" "+w, 0.5)
		}
	}
	Normalize(vec)
	return vec, nil
}

func (h *Hash) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()

	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
