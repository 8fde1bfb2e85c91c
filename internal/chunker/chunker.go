// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package chunker loads a document from a file, a URL or inline text and
// splits it into token-bounded chunks.
package chunker

import (
	"context"
	"fmt"
	"io"
	"iter"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akcio-dev/akcio/internal/store"
	"github.com/akcio-dev/akcio/internal/tokens"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// SourceType says how a source string is interpreted.
type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
	SourceText SourceType = "text"
)

// ParseSourceType validates a source type name. The empty string means file.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(strings.ToLower(s)) {
	case "", SourceFile:
		return SourceFile, nil
	case SourceURL:
		return SourceURL, nil
	case SourceText:
		return SourceText, nil
	default:
		return "", akcioerr.New(akcioerr.CodeIngestSourceTypeInvalid,
			fmt.Sprintf("unknown source type %q (want file, url or text)", s))
	}
}

// Chunk is one piece of extracted document text. Offset is the rune offset
// of the chunk's first character in the extracted text.
type Chunk struct {
	Text   string
	Offset int
}

// Chunker produces a finite, single-use chunk sequence for a source.
// Load failures are returned directly; later failures are yielded.
type Chunker interface {
	Chunk(ctx context.Context, source string, sourceType SourceType, chunkSize int) (iter.Seq2[Chunk, error], error)
}

const (
	// DefaultChunkSize is the chunk budget in tokens.
	DefaultChunkSize    = 300
	defaultFetchTimeout = 30 * time.Second
	maxDocumentBytes    = 32 << 20
)

// Compile-time interface check.
var _ Chunker = (*TextChunker)(nil)

// TextChunker splits plain text and HTML documents on sentence boundaries.
type TextChunker struct {
	counter  *tokens.Counter
	client   *http.Client
	maxChars int
}

// Option configures a TextChunker.
type Option func(*TextChunker)

// WithCounter sets the token counter used to size chunks.
func WithCounter(c *tokens.Counter) Option {
	return func(t *TextChunker) { t.counter = c }
}

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(t *TextChunker) { t.client = c }
}

// WithFetchTimeout bounds each URL fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(t *TextChunker) {
		if d > 0 {
			t.client = &http.Client{Timeout: d}
		}
	}
}

// WithMaxChars caps chunk length in characters. It defaults to the chunk
// schema limit.
func WithMaxChars(n int) Option {
	return func(t *TextChunker) {
		if n > 0 {
			t.maxChars = n
		}
	}
}

func New(opts ...Option) *TextChunker {
	t := &TextChunker{
		counter:  tokens.Default(),
		client:   &http.Client{Timeout: defaultFetchTimeout},
		maxChars: store.MaxTextLength,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TextChunker) Chunk(ctx context.Context, source string, sourceType SourceType, chunkSize int) (iter.Seq2[Chunk, error], error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	text, err := t.load(ctx, source, sourceType)
	if err != nil {
		return nil, err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return func(yield func(Chunk, error) bool) {
		for c := range split(text, chunkSize, t.maxChars, t.counter) {
			if err := ctx.Err(); err != nil {
				yield(Chunk{}, akcioerr.Wrap(err, akcioerr.CodeIngestSourceUnreadable, "chunking interrupted",
					akcioerr.Field("source", sourceLabel(source, sourceType))))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}, nil
}

// load returns the extracted text of a source.
func (t *TextChunker) load(ctx context.Context, source string, sourceType SourceType) (string, error) {
	switch sourceType {
	case SourceText:
		return source, nil
	case SourceFile, "":
		return loadFile(source)
	case SourceURL:
		return t.loadURL(ctx, source)
	default:
		_, err := ParseSourceType(string(sourceType))
		return "", err
	}
}

func loadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", unreadable(err, path, "reading file")
	}
	if !info.Mode().IsRegular() {
		return "", unreadable(fmt.Errorf("%s is not a regular file", path), path, "reading file")
	}
	if info.Size() > maxDocumentBytes {
		return "", unreadable(fmt.Errorf("file is %d bytes, limit is %d", info.Size(), maxDocumentBytes), path, "reading file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", unreadable(err, path, "reading file")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err := extractHTML(strings.NewReader(string(data)))
		if err != nil {
			return "", unreadable(err, path, "parsing html")
		}
		return text, nil
	default:
		return string(data), nil
	}
}

func (t *TextChunker) loadURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", unreadable(err, url, "building request")
	}
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.5")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", unreadable(err, url, "fetching url")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", unreadable(fmt.Errorf("status %d", resp.StatusCode), url, "fetching url")
	}

	body := io.LimitReader(resp.Body, maxDocumentBytes)
	if isHTML(resp.Header.Get("Content-Type"), url) {
		text, err := extractHTML(body)
		if err != nil {
			return "", unreadable(err, url, "parsing html")
		}
		return text, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", unreadable(err, url, "reading response")
	}
	return string(data), nil
}

func isHTML(contentType, url string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt == "text/html" || mt == "application/xhtml+xml"
	}
	ext := strings.ToLower(filepath.Ext(url))
	return ext == ".html" || ext == ".htm" || contentType == ""
}

func unreadable(err error, source, msg string) error {
	return akcioerr.Wrap(err, akcioerr.CodeIngestSourceUnreadable, msg, akcioerr.Field("source", source))
}

func sourceLabel(source string, sourceType SourceType) string {
	if sourceType == SourceText {
		return "inline text"
	}
	return source
}
