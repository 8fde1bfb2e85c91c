// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package chunker

import (
	"io"
	"slices"

	"github.com/akcio-dev/akcio/internal/tokens"
)

var ExtractHTML = func(r io.Reader) (string, error) { return extractHTML(r) }

var Split = func(text string, chunkSize, maxChars int, counter *tokens.Counter) []Chunk {
	return slices.Collect(split(text, chunkSize, maxChars, counter))
}
