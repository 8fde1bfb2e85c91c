// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package chunker

import (
	"iter"
	"unicode"

	"github.com/akcio-dev/akcio/internal/tokens"
)

// span is a half-open rune range of the source text.
type span struct{ start, end int }

// split packs sentences into chunks of at most chunkSize tokens and maxChars
// characters. Sentences over either limit are split on whitespace, and words
// over maxChars are cut.
func split(text string, chunkSize, maxChars int, counter *tokens.Counter) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		r := []rune(text)

		var cur span
		has := false
		curTokens := 0

		flush := func() bool {
			if !has {
				return true
			}
			has = false
			return yield(Chunk{Text: string(r[cur.start:cur.end]), Offset: cur.start})
		}
		add := func(p span, n int) bool {
			if has && (curTokens+n > chunkSize || p.end-cur.start > maxChars) {
				if !flush() {
					return false
				}
			}
			if !has {
				cur, curTokens, has = p, n, true
				return true
			}
			cur.end = p.end
			curTokens += n
			return true
		}

		for _, s := range sentences(r) {
			n := counter.Count(string(r[s.start:s.end]))
			if s.end-s.start <= maxChars && n <= chunkSize {
				if !add(s, n) {
					return
				}
				continue
			}
			for _, w := range words(r, s, maxChars) {
				if !add(w, counter.Count(string(r[w.start:w.end]))) {
					return
				}
			}
		}
		flush()
	}
}

// sentences splits on terminal punctuation followed by whitespace and on
// blank lines. Spans are trimmed of surrounding whitespace.
func sentences(r []rune) []span {
	var out []span
	start := -1
	for i := 0; i < len(r); i++ {
		if start < 0 {
			if unicode.IsSpace(r[i]) {
				continue
			}
			start = i
		}

		end := -1
		switch {
		case isTerminal(r[i]) && (i+1 == len(r) || unicode.IsSpace(r[i+1])):
			end = i + 1
		case r[i] == '\n' && i+1 < len(r) && r[i+1] == '\n':
			end = i
		}
		if end >= 0 {
			if s := trim(r, start, end); s.end > s.start {
				out = append(out, s)
			}
			start = -1
		}
	}
	if start >= 0 {
		if s := trim(r, start, len(r)); s.end > s.start {
			out = append(out, s)
		}
	}
	return out
}

func words(r []rune, s span, maxChars int) []span {
	var out []span
	i := s.start
	for i < s.end {
		for i < s.end && unicode.IsSpace(r[i]) {
			i++
		}
		j := i
		for j < s.end && !unicode.IsSpace(r[j]) {
			j++
		}
		for k := i; k < j; k += maxChars {
			out = append(out, span{k, min(k+maxChars, j)})
		}
		i = j
	}
	return out
}

func trim(r []rune, start, end int) span {
	for start < end && unicode.IsSpace(r[start]) {
		start++
	}
	for end > start && unicode.IsSpace(r[end-1]) {
		end--
	}
	return span{start, end}
}

func isTerminal(c rune) bool {
	switch c {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
