// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package pipeline

import (
	"sort"

	"github.com/akcio-dev/akcio/internal/store"
)

// ScoreFunc decides which of two hits with the same TextID is kept. It
// returns true when candidate should replace current.
type ScoreFunc func(current, candidate store.ScoredChunk) bool

// PreferHigherScore keeps the higher score; on a tie the vector hit wins.
func PreferHigherScore(current, candidate store.ScoredChunk) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return candidate.Origin == store.OriginVector && current.Origin != store.OriginVector
}

// Merge unions hit lists by TextID using prefer, and returns the result
// ordered by descending score. Equal scores keep first-seen order.
func Merge(prefer ScoreFunc, lists ...[]store.ScoredChunk) []store.ScoredChunk {
	if prefer == nil {
		prefer = PreferHigherScore
	}

	index := map[string]int{}
	var out []store.ScoredChunk
	for _, hits := range lists {
		for _, h := range hits {
			at, seen := index[h.TextID]
			if !seen {
				index[h.TextID] = len(out)
				out = append(out, h)
				continue
			}
			if prefer(out[at], h) {
				out[at] = h
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
