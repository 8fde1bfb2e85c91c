// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package assistant is the entry point for ingesting documents into projects
// and holding retrieval-augmented conversations over them.
package assistant

import (
	"context"
	"log/slog"

	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/memory"
	"github.com/akcio-dev/akcio/internal/pipeline"
	"github.com/akcio-dev/akcio/internal/project"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Deps are the collaborators a Service is built from. All are required.
type Deps struct {
	Projects *project.Manager
	Memory   *memory.Ledger
	Ingest   *pipeline.Ingest
	Search   *pipeline.Search
}

// Status reports which of a project's stores exist.
type Status struct {
	Store  bool `json:"store"`
	Memory bool `json:"memory"`
}

// Service ties the project stores, pipelines and memory together. It does
// not serialise calls; callers keep one chat per session in flight.
type Service struct {
	projects *project.Manager
	memory   *memory.Ledger
	ingest   *pipeline.Ingest
	search   *pipeline.Search
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(d Deps, opts ...Option) (*Service, error) {
	switch {
	case d.Projects == nil:
		return nil, akcioerr.New(akcioerr.CodeAssistantConfigInvalid, "project manager is required")
	case d.Memory == nil:
		return nil, akcioerr.New(akcioerr.CodeAssistantConfigInvalid, "memory ledger is required")
	case d.Ingest == nil:
		return nil, akcioerr.New(akcioerr.CodeAssistantConfigInvalid, "ingest pipeline is required")
	case d.Search == nil:
		return nil, akcioerr.New(akcioerr.CodeAssistantConfigInvalid, "search pipeline is required")
	}
	s := &Service{
		projects: d.Projects,
		memory:   d.Memory,
		ingest:   d.Ingest,
		search:   d.Search,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Insert ingests a file, URL or inline text into project and returns the
// number of chunks stored.
func (s *Service) Insert(ctx context.Context, source, project string, sourceType chunker.SourceType) (int64, error) {
	n, err := s.ingest.Insert(ctx, source, project, sourceType)
	if err != nil {
		return 0, s.fail(err, "insert", akcioerr.FieldProject(project), akcioerr.Field("source_type", string(sourceType)))
	}
	return n, nil
}

// InsertText ingests inline text whose chunks are labelled with name.
func (s *Service) InsertText(ctx context.Context, name, text, project string) (int64, error) {
	n, err := s.ingest.InsertText(ctx, name, text, project)
	if err != nil {
		return 0, s.fail(err, "insert", akcioerr.FieldProject(project), akcioerr.Field("source_type", string(chunker.SourceText)))
	}
	return n, nil
}

// Chat answers question using the session's history, then records the turn.
// If recording fails the answer is still returned with the error.
func (s *Service) Chat(ctx context.Context, session, project, question string) (string, error) {
	fields := []akcioerr.Attr{akcioerr.FieldProject(project), akcioerr.FieldSession(session)}

	history, err := s.memory.Get(ctx, project, session)
	if err != nil {
		return "", s.fail(err, "chat", fields...)
	}
	answer, err := s.search.Search(ctx, question, history, project)
	if err != nil {
		return "", s.fail(err, "chat", fields...)
	}
	if err := s.memory.Append(ctx, project, session, store.Turn{Question: question, Answer: answer}); err != nil {
		return answer, s.fail(err, "chat", fields...)
	}
	return answer, nil
}

// Retrieve returns the context chunks a chat would use, without generating.
func (s *Service) Retrieve(ctx context.Context, question, project string) ([]store.ScoredChunk, error) {
	chunks, err := s.search.Retrieve(ctx, question, project)
	if err != nil {
		return nil, s.fail(err, "retrieve", akcioerr.FieldProject(project))
	}
	return chunks, nil
}

func (s *Service) Check(ctx context.Context, project string) (Status, error) {
	st, err := s.projects.Exists(ctx, project)
	if err != nil {
		return Status{}, s.fail(err, "check", akcioerr.FieldProject(project))
	}
	mem, err := s.memory.Check(ctx, project)
	if err != nil {
		return Status{}, s.fail(err, "check", akcioerr.FieldProject(project))
	}
	return Status{Store: st, Memory: mem}, nil
}

func (s *Service) Count(ctx context.Context, project string) (int64, error) {
	n, err := s.projects.Count(ctx, project)
	if err != nil {
		return 0, s.fail(err, "count", akcioerr.FieldProject(project))
	}
	return n, nil
}

// Drop removes the project's document store, then its history when present.
func (s *Service) Drop(ctx context.Context, project string) error {
	if err := s.projects.Drop(ctx, project); err != nil {
		return s.fail(err, "drop", akcioerr.FieldProject(project))
	}
	ok, err := s.memory.Check(ctx, project)
	if err != nil {
		return s.fail(err, "drop", akcioerr.FieldProject(project))
	}
	if ok {
		if err := s.memory.Drop(ctx, project); err != nil {
			return s.fail(err, "drop", akcioerr.FieldProject(project))
		}
	}
	s.logger.Info("project dropped", "project", project, "memory", ok)
	return nil
}

func (s *Service) GetHistory(ctx context.Context, project, session string) ([]store.Turn, error) {
	turns, err := s.memory.Get(ctx, project, session)
	if err != nil {
		return nil, s.fail(err, "get_history", akcioerr.FieldProject(project), akcioerr.FieldSession(session))
	}
	return turns, nil
}

// ClearHistory deletes the session's turns and returns what remains, which is
// empty unless another writer raced the clear.
func (s *Service) ClearHistory(ctx context.Context, project, session string) ([]store.Turn, error) {
	fields := []akcioerr.Attr{akcioerr.FieldProject(project), akcioerr.FieldSession(session)}
	if err := s.memory.Clear(ctx, project, session); err != nil {
		return nil, s.fail(err, "clear_history", fields...)
	}
	turns, err := s.memory.Get(ctx, project, session)
	if err != nil {
		return nil, s.fail(err, "clear_history", fields...)
	}
	return turns, nil
}

// ScalarEnabled reports whether keyword search runs alongside vector search.
func (s *Service) ScalarEnabled() bool { return s.projects.ScalarEnabled() }

func (s *Service) fail(err error, op string, fields ...akcioerr.Attr) error {
	err = akcioerr.With(err, append(fields, akcioerr.FieldOperation(op))...)
	s.logger.Error("operation failed", "operation", op, "code", akcioerr.CodeOf(err),
		"kind", akcioerr.KindOf(err), "error", err)
	return err
}
