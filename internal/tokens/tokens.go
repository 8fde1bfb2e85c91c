// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package tokens counts model tokens for chunk sizing and prompt budgets.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is shared by the OpenAI chat models and is a close enough
// estimate for the other providers.
const DefaultEncoding = "cl100k_base"

func init() {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
}

// Counter counts tokens with a BPE encoding. A Counter without an encoding
// estimates four characters per token.
type Counter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

// New loads the named encoding from the embedded BPE files.
func New(encoding string) (*Counter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Counter{encoding: enc}, nil
}

var (
	defaultCounter *Counter
	defaultOnce    sync.Once
)

// Default returns the process-wide cl100k_base counter, loaded once. If the
// encoding cannot be loaded the returned counter estimates instead.
func Default() *Counter {
	defaultOnce.Do(func() {
		c, err := New(DefaultEncoding)
		if err != nil {
			c = &Counter{}
		}
		defaultCounter = c
	})
	return defaultCounter
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.encoding == nil {
		return estimate(text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// Exact reports whether counts come from a real encoding.
func (c *Counter) Exact() bool {
	return c != nil && c.encoding != nil
}

func estimate(text string) int {
	n := (utf8.RuneCountInString(text) + 3) / 4
	if n == 0 {
		return 1
	}
	return n
}
