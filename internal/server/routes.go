// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
	"github.com/akcio-dev/akcio/pkg/health"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "insert-document",
		Method:        http.MethodPost,
		Path:          "/api/v1/projects/{project}/documents",
		Summary:       "Ingest a file, URL or inline text",
		Tags:          []string{"projects"},
		DefaultStatus: http.StatusCreated,
	}, s.handleInsert)

	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{project}/chat",
		Summary:     "Ask a question within a session",
		Tags:        []string{"chat"},
	}, s.handleChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "retrieve",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{project}/retrieve",
		Summary:     "Return the context chunks for a question",
		Tags:        []string{"chat"},
	}, s.handleRetrieve)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects/{project}",
		Summary:     "Check a project's stores and count its chunks",
		Tags:        []string{"projects"},
	}, s.handleGetProject)

	huma.Register(s.api, huma.Operation{
		OperationID:   "drop-project",
		Method:        http.MethodDelete,
		Path:          "/api/v1/projects/{project}",
		Summary:       "Drop a project's documents and history",
		Tags:          []string{"projects"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDropProject)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects/{project}/sessions/{session}/history",
		Summary:     "List a session's turns",
		Tags:        []string{"history"},
	}, s.handleGetHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-history",
		Method:      http.MethodDelete,
		Path:        "/api/v1/projects/{project}/sessions/{session}/history",
		Summary:     "Clear a session's turns",
		Tags:        []string{"history"},
	}, s.handleClearHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-providers",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers",
		Summary:     "Language model provider health",
		Tags:        []string{"system"},
	}, s.handleProviders)
}

type projectInput struct {
	Project string `path:"project" doc:"Project name" example:"docs"`
}

type sessionInput struct {
	Project string `path:"project" doc:"Project name"`
	Session string `path:"session" doc:"Session id"`
}

type insertInput struct {
	Project string `path:"project"`
	Body    struct {
		Source     string `json:"source,omitempty" doc:"File path or URL"`
		SourceType string `json:"source_type,omitempty" doc:"file, url or text" example:"file"`
		Name       string `json:"name,omitempty" doc:"Label for inline text"`
		Text       string `json:"text,omitempty" doc:"Inline text to ingest"`
	}
}

type insertOutput struct {
	Body struct {
		Project string `json:"project"`
		Chunks  int64  `json:"chunks" doc:"Chunks added to the project"`
	}
}

type chatInput struct {
	Project string `path:"project"`
	Body    struct {
		SessionID string `json:"session_id" minLength:"1"`
		Question  string `json:"question" minLength:"1"`
	}
}

type chatOutput struct {
	Body struct {
		SessionID string `json:"session_id"`
		Answer    string `json:"answer"`
	}
}

type retrieveInput struct {
	Project string `path:"project"`
	Body    struct {
		Question string `json:"question" minLength:"1"`
	}
}

// Chunk is a retrieved context chunk.
type Chunk struct {
	TextID string  `json:"text_id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Origin string  `json:"origin" enum:"vector,keyword"`
}

type retrieveOutput struct {
	Body struct {
		Chunks []Chunk `json:"chunks"`
	}
}

type projectOutput struct {
	Body struct {
		Project string `json:"project"`
		Store   bool   `json:"store" doc:"Document store exists"`
		Memory  bool   `json:"memory" doc:"History table exists"`
		Count   *int64 `json:"count,omitempty" doc:"Stored chunks, when the store exists"`
	}
}

// Turn is one question and its answer.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type historyOutput struct {
	Body struct {
		Project   string `json:"project"`
		SessionID string `json:"session_id"`
		Turns     []Turn `json:"turns"`
	}
}

type providersOutput struct {
	Body struct {
		Providers []health.Provider `json:"providers"`
	}
}

func (s *Server) handleInsert(ctx context.Context, in *insertInput) (*insertOutput, error) {
	var (
		n   int64
		err error
	)
	switch {
	case in.Body.Text != "":
		n, err = s.assistant.InsertText(ctx, in.Body.Name, in.Body.Text, in.Project)
	case in.Body.Source != "":
		st, perr := chunker.ParseSourceType(in.Body.SourceType)
		if perr != nil {
			return nil, s.httpError("insert", perr)
		}
		n, err = s.assistant.Insert(ctx, in.Body.Source, in.Project, st)
	default:
		return nil, huma.Error400BadRequest("either source or text is required")
	}
	if err != nil {
		return nil, s.httpError("insert", err)
	}

	out := &insertOutput{}
	out.Body.Project = in.Project
	out.Body.Chunks = n
	return out, nil
}

func (s *Server) handleChat(ctx context.Context, in *chatInput) (*chatOutput, error) {
	answer, err := s.assistant.Chat(ctx, in.Body.SessionID, in.Project, in.Body.Question)
	if err != nil {
		return nil, s.httpError("chat", err)
	}
	out := &chatOutput{}
	out.Body.SessionID = in.Body.SessionID
	out.Body.Answer = answer
	return out, nil
}

func (s *Server) handleRetrieve(ctx context.Context, in *retrieveInput) (*retrieveOutput, error) {
	hits, err := s.assistant.Retrieve(ctx, in.Body.Question, in.Project)
	if err != nil {
		return nil, s.httpError("retrieve", err)
	}
	out := &retrieveOutput{}
	out.Body.Chunks = make([]Chunk, 0, len(hits))
	for _, h := range hits {
		out.Body.Chunks = append(out.Body.Chunks, Chunk{TextID: h.TextID, Text: h.Text, Score: h.Score, Origin: string(h.Origin)})
	}
	return out, nil
}

func (s *Server) handleGetProject(ctx context.Context, in *projectInput) (*projectOutput, error) {
	st, err := s.assistant.Check(ctx, in.Project)
	if err != nil {
		return nil, s.httpError("check", err)
	}
	out := &projectOutput{}
	out.Body.Project = in.Project
	out.Body.Store = st.Store
	out.Body.Memory = st.Memory
	if st.Store {
		n, err := s.assistant.Count(ctx, in.Project)
		if err != nil {
			return nil, s.httpError("count", err)
		}
		out.Body.Count = &n
	}
	return out, nil
}

func (s *Server) handleDropProject(ctx context.Context, in *projectInput) (*struct{}, error) {
	if err := s.assistant.Drop(ctx, in.Project); err != nil {
		return nil, s.httpError("drop", err)
	}
	return nil, nil
}

func (s *Server) handleGetHistory(ctx context.Context, in *sessionInput) (*historyOutput, error) {
	turns, err := s.assistant.GetHistory(ctx, in.Project, in.Session)
	if err != nil {
		return nil, s.httpError("get_history", err)
	}
	return newHistoryOutput(in, turns), nil
}

func (s *Server) handleClearHistory(ctx context.Context, in *sessionInput) (*historyOutput, error) {
	turns, err := s.assistant.ClearHistory(ctx, in.Project, in.Session)
	if err != nil {
		return nil, s.httpError("clear_history", err)
	}
	return newHistoryOutput(in, turns), nil
}

func (s *Server) handleProviders(ctx context.Context, _ *struct{}) (*providersOutput, error) {
	out := &providersOutput{}
	out.Body.Providers = []health.Provider{}
	if s.providers != nil {
		out.Body.Providers = s.providers.Health(ctx)
	}
	return out, nil
}

func newHistoryOutput(in *sessionInput, turns []store.Turn) *historyOutput {
	out := &historyOutput{}
	out.Body.Project = in.Project
	out.Body.SessionID = in.Session
	out.Body.Turns = make([]Turn, 0, len(turns))
	for _, t := range turns {
		out.Body.Turns = append(out.Body.Turns, Turn{Question: t.Question, Answer: t.Answer})
	}
	return out
}

// httpError maps a domain error onto its HTTP status. Details of server-side
// failures stay in the log.
func (s *Server) httpError(op string, err error) error {
	status := akcioerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "operation", op, "code", akcioerr.CodeOf(err), "error", err)
		return huma.NewError(status, string(akcioerr.KindOf(err))+": "+op+" failed")
	}
	return huma.NewError(status, err.Error())
}
