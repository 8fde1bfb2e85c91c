// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/embedding"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// DefaultBatchSize is the number of records per store write.
const DefaultBatchSize = 64

// Ingest chunks, embeds and stores documents. Writes are at-least-once:
// batches written before a failure stay, and ingesting a source twice stores
// its chunks twice.
type Ingest struct {
	store     ProjectStore
	chunker   chunker.Chunker
	embedder  embedding.Embedder
	chunkSize int
	batchSize int
	metrics   *Metrics
	logger    *slog.Logger
}

type IngestOption func(*Ingest)

func WithChunkSize(n int) IngestOption {
	return func(i *Ingest) { i.chunkSize = n }
}

func WithBatchSize(n int) IngestOption {
	return func(i *Ingest) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

func WithIngestMetrics(m *Metrics) IngestOption {
	return func(i *Ingest) { i.metrics = m }
}

func WithIngestLogger(l *slog.Logger) IngestOption {
	return func(i *Ingest) { i.logger = l }
}

func NewIngest(s ProjectStore, c chunker.Chunker, e embedding.Embedder, opts ...IngestOption) *Ingest {
	i := &Ingest{
		store:     s,
		chunker:   c,
		embedder:  e,
		chunkSize: chunker.DefaultChunkSize,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Insert ingests a file path or URL into project, creating the project when
// needed, and returns how many records the project gained.
func (i *Ingest) Insert(ctx context.Context, source, project string, sourceType chunker.SourceType) (int64, error) {
	label := source
	if sourceType == chunker.SourceText {
		label = TextLabel(source)
	}
	return i.run(ctx, label, source, project, sourceType)
}

// InsertText ingests inline text. name labels the chunks' text ids; unnamed
// text is labelled by its content.
func (i *Ingest) InsertText(ctx context.Context, name, text, project string) (int64, error) {
	if name == "" {
		name = TextLabel(text)
	}
	return i.run(ctx, name, text, project, chunker.SourceText)
}

// TextLabel names unnamed inline text by a digest of its content, so chunks
// of different documents never share a text id.
func TextLabel(text string) string {
	sum := sha1.Sum([]byte(text))
	return "text:" + hex.EncodeToString(sum[:6])
}

func (i *Ingest) run(ctx context.Context, label, source, project string, sourceType chunker.SourceType) (n int64, err error) {
	ctx, span := startSpan(ctx, "pipeline.ingest", project,
		attribute.String("akcio.source", label), attribute.String("akcio.source_type", string(sourceType)))
	defer func() {
		span.SetAttributes(attribute.Int64("akcio.chunks", n))
		endSpan(span, err)
		i.metrics.finish("ingest", err)
	}()

	created, err := i.store.Ensure(ctx, project)
	if err != nil {
		return 0, err
	}
	if created {
		i.logger.Info("project created for ingest", "project", project)
	}

	before, err := i.store.Count(ctx, project)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	chunks, err := i.chunker.Chunk(ctx, source, sourceType, i.chunkSize)
	i.metrics.observeStage("load", start)
	if err != nil {
		return 0, akcioerr.Classify(err, akcioerr.CodeIngestSourceUnreadable, "loading source",
			akcioerr.FieldProject(project), akcioerr.Field("source", label))
	}

	batch := make([]store.ChunkRecord, 0, i.batchSize)
	written := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		err := i.store.Insert(ctx, project, batch)
		i.metrics.observeStage("write", start)
		if err != nil {
			return err
		}
		written += len(batch)
		i.metrics.addChunks(project, len(batch))
		batch = batch[:0]
		return nil
	}

	for c, cerr := range chunks {
		if cerr != nil {
			return 0, i.partial(akcioerr.Classify(cerr, akcioerr.CodeIngestSourceUnreadable, "reading chunks",
				akcioerr.FieldProject(project), akcioerr.Field("source", label)), project, written)
		}

		vec, err := i.embed(ctx, c.Text)
		if err != nil {
			return 0, i.partial(akcioerr.With(err, akcioerr.FieldProject(project),
				akcioerr.Field("text_id", TextID(label, c.Offset))), project, written)
		}
		batch = append(batch, store.ChunkRecord{
			TextID:    TextID(label, c.Offset),
			Text:      c.Text,
			Embedding: vec,
		})
		if len(batch) == i.batchSize {
			if err := flush(); err != nil {
				return 0, i.partial(err, project, written)
			}
		}
	}
	if err := flush(); err != nil {
		return 0, i.partial(err, project, written)
	}

	after, err := i.store.Count(ctx, project)
	if err != nil {
		return 0, err
	}
	n = after - before
	i.logger.Info("source ingested", "project", project, "source", label, "chunks", n)
	return n, nil
}

func (i *Ingest) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer i.metrics.observeStage("embed", start)

	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, akcioerr.Classify(err, akcioerr.CodeEmbeddingVectorFailure, "embedding chunk",
			akcioerr.FieldProvider(i.embedder.Name()))
	}
	if want := i.store.Dimensions(); want > 0 && len(vec) != want {
		return nil, akcioerr.New(akcioerr.CodeEmbeddingDimensionMismatch,
			fmt.Sprintf("embedder returned %d dimensions, collection has %d", len(vec), want),
			akcioerr.FieldProvider(i.embedder.Name()))
	}
	return vec, nil
}

// partial annotates err with the number of records already committed.
func (i *Ingest) partial(err error, project string, written int) error {
	if written > 0 {
		i.logger.Warn("ingest failed after partial write", "project", project, "written", written, "error", err)
	}
	return akcioerr.With(err, akcioerr.Field("written", written))
}

// TextID names a chunk by its source and rune offset. Sources too long for
// the text_id limit are replaced by their SHA-1 digest, keeping a readable
// prefix.
func TextID(source string, offset int) string {
	suffix := "#" + strconv.Itoa(offset)
	if utf8.RuneCountInString(source)+len(suffix) <= store.MaxTextIDLength {
		return source + suffix
	}
	sum := sha1.Sum([]byte(source))
	digest := hex.EncodeToString(sum[:])
	keep := store.MaxTextIDLength - len(suffix) - len(digest) - 1
	runes := []rune(source)
	return string(runes[:keep]) + "~" + digest + suffix
}
