// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package chunker_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akcio-dev/akcio/internal/chunker"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

func collect(t *testing.T, c chunker.Chunker, source string, st chunker.SourceType) []chunker.Chunk {
	t.Helper()
	seq, err := c.Chunk(context.Background(), source, st, 100)
	require.NoError(t, err)

	var out []chunker.Chunk
	for ch, err := range seq {
		require.NoError(t, err)
		out = append(out, ch)
	}
	return out
}

func TestParseSourceType(t *testing.T) {
	for in, want := range map[string]chunker.SourceType{
		"": chunker.SourceFile, "file": chunker.SourceFile, "URL": chunker.SourceURL, "text": chunker.SourceText,
	} {
		got, err := chunker.ParseSourceType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := chunker.ParseSourceType("pdf")
	require.Error(t, err)
	assert.True(t, akcioerr.IsInvalidInput(err))
}

func TestChunk_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("First line.\r\n\r\nSecond line."), 0o600))

	chunks := collect(t, chunker.New(), path, chunker.SourceFile)
	require.Len(t, chunks, 1)
	assert.Equal(t, "First line.\n\nSecond line.", chunks[0].Text)
}

func TestChunk_HTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><p>Hello <b>there</b>.</p><script>x()</script></body></html>`), 0o600))

	chunks := collect(t, chunker.New(), path, chunker.SourceFile)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello there.", chunks[0].Text)
}

func TestChunk_MissingFileIsUnreadable(t *testing.T) {
	_, err := chunker.New().Chunk(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), chunker.SourceFile, 100)
	require.Error(t, err)
	assert.Equal(t, akcioerr.KindSourceUnreadable, akcioerr.KindOf(err))
}

func TestChunk_DirectoryIsUnreadable(t *testing.T) {
	_, err := chunker.New().Chunk(context.Background(), t.TempDir(), chunker.SourceFile, 100)
	assert.Equal(t, akcioerr.KindSourceUnreadable, akcioerr.KindOf(err))
}

func TestChunk_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, "<h1>Guide</h1><p>Install it.</p>")
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprint(w, "<b>not html</b>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := chunker.New(chunker.WithHTTPClient(srv.Client()))

	chunks := collect(t, c, srv.URL+"/page", chunker.SourceURL)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Guide\n\nInstall it.", chunks[0].Text)

	chunks = collect(t, c, srv.URL+"/plain", chunker.SourceURL)
	require.Len(t, chunks, 1)
	assert.Equal(t, "<b>not html</b>", chunks[0].Text)

	_, err := c.Chunk(context.Background(), srv.URL+"/missing", chunker.SourceURL, 100)
	require.Error(t, err)
	assert.Equal(t, akcioerr.KindSourceUnreadable, akcioerr.KindOf(err))
}

func TestChunk_Text(t *testing.T) {
	chunks := collect(t, chunker.New(), "Inline text.", chunker.SourceText)
	assert.Equal(t, []chunker.Chunk{{Text: "Inline text.", Offset: 0}}, chunks)
}

func TestChunk_CancelledContextYieldsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	text := strings.Repeat("Sentence here. ", 50)
	seq, err := chunker.New(chunker.WithMaxChars(20)).Chunk(ctx, text, chunker.SourceText, 5)
	require.NoError(t, err)

	var gotErr error
	n := 0
	for _, err := range seq {
		if err != nil {
			gotErr = err
			break
		}
		n++
		if n == 2 {
			cancel()
		}
	}
	require.Error(t, gotErr)
	assert.Equal(t, 2, n)
	assert.Equal(t, akcioerr.KindSourceUnreadable, akcioerr.KindOf(gotErr))
}
