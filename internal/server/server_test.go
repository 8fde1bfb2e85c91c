// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akcio-dev/akcio/internal/assistant"
	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/server"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
	"github.com/akcio-dev/akcio/pkg/health"
)

type insertCall struct {
	source, project string
	sourceType      chunker.SourceType
}

// fakeAssistant keeps projects and history in maps.
type fakeAssistant struct {
	inserts []insertCall
	chunks  map[string]int64
	history map[string][]store.Turn
	err     error
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{chunks: map[string]int64{}, history: map[string][]store.Turn{}}
}

func (f *fakeAssistant) Insert(_ context.Context, source, project string, st chunker.SourceType) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserts = append(f.inserts, insertCall{source, project, st})
	f.chunks[project] += 3
	return 3, nil
}

func (f *fakeAssistant) InsertText(_ context.Context, name, _ string, project string) (int64, error) {
	f.inserts = append(f.inserts, insertCall{name, project, chunker.SourceText})
	f.chunks[project]++
	return 1, nil
}

func (f *fakeAssistant) Chat(_ context.Context, session, project, question string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, ok := f.chunks[project]; !ok {
		return "", akcioerr.New(akcioerr.CodeProjectStoreNotFound, "project does not exist")
	}
	answer := "re: " + question
	key := project + "/" + session
	f.history[key] = append(f.history[key], store.Turn{Question: question, Answer: answer})
	return answer, nil
}

func (f *fakeAssistant) Retrieve(context.Context, string, string) ([]store.ScoredChunk, error) {
	return []store.ScoredChunk{{TextID: "a.md#0", Text: "alpha", Score: 0.9, Origin: store.OriginVector}}, f.err
}

func (f *fakeAssistant) Check(_ context.Context, project string) (assistant.Status, error) {
	_, ok := f.chunks[project]
	return assistant.Status{Store: ok}, f.err
}

func (f *fakeAssistant) Count(_ context.Context, project string) (int64, error) {
	return f.chunks[project], nil
}

func (f *fakeAssistant) Drop(_ context.Context, project string) error {
	if _, ok := f.chunks[project]; !ok {
		return akcioerr.New(akcioerr.CodeProjectStoreNotFound, "project does not exist")
	}
	delete(f.chunks, project)
	return nil
}

func (f *fakeAssistant) GetHistory(_ context.Context, project, session string) ([]store.Turn, error) {
	return f.history[project+"/"+session], f.err
}

func (f *fakeAssistant) ClearHistory(_ context.Context, project, session string) ([]store.Turn, error) {
	delete(f.history, project+"/"+session)
	return nil, nil
}

type fakeProviders []health.Provider

func (p fakeProviders) Health(context.Context) []health.Provider { return p }

func newTestServer(t *testing.T, a server.Assistant, opts ...server.Option) *server.Server {
	t.Helper()
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, a, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func do(t *testing.T, srv *server.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := server.New(server.Config{}, newFakeAssistant())
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeServerConfigInvalid))

	_, err = server.New(server.Config{ListenAddr: ":0"}, nil)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeServerConfigInvalid))

	_, err = server.New(server.Config{ListenAddr: ":0", RateLimit: server.RateLimitConfig{RequestsPerSecond: 1}}, newFakeAssistant())
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeServerConfigInvalid))
}

func TestServer_Health(t *testing.T) {
	w := do(t, newTestServer(t, newFakeAssistant()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestServer_OpenAPI(t *testing.T) {
	w := do(t, newTestServer(t, newFakeAssistant()), http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/projects/{project}/chat")
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "akcio_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	w := do(t, newTestServer(t, newFakeAssistant(), server.WithGatherer(reg)), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "akcio_test_total 1")
}

func TestServer_InsertAndInspect(t *testing.T) {
	a := newFakeAssistant()
	srv := newTestServer(t, a)

	w := do(t, srv, http.MethodPost, "/api/v1/projects/docs/documents", `{"source":"https://example.com/a","source_type":"url"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 3, decode(t, w)["chunks"])
	assert.Equal(t, insertCall{"https://example.com/a", "docs", chunker.SourceURL}, a.inserts[0])

	w = do(t, srv, http.MethodPost, "/api/v1/projects/docs/documents", `{"name":"faq","text":"Q and A"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, chunker.SourceText, a.inserts[1].sourceType)

	w = do(t, srv, http.MethodGet, "/api/v1/projects/docs", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["store"])
	assert.EqualValues(t, 4, body["count"])

	w = do(t, srv, http.MethodGet, "/api/v1/projects/other", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["store"])
	assert.NotContains(t, body, "count")
}

func TestServer_InsertValidation(t *testing.T) {
	srv := newTestServer(t, newFakeAssistant())

	w := do(t, srv, http.MethodPost, "/api/v1/projects/docs/documents", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/projects/docs/documents", `{"source":"a.md","source_type":"ftp"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown source type")
}

func TestServer_ChatAndHistory(t *testing.T) {
	a := newFakeAssistant()
	a.chunks["p1"] = 3
	srv := newTestServer(t, a)

	w := do(t, srv, http.MethodPost, "/api/v1/projects/p1/chat", `{"session_id":"s1","question":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "re: hello", decode(t, w)["answer"])

	w = do(t, srv, http.MethodGet, "/api/v1/projects/p1/sessions/s1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	turns := decode(t, w)["turns"].([]any)
	require.Len(t, turns, 1)
	assert.Equal(t, map[string]any{"question": "hello", "answer": "re: hello"}, turns[0])

	w = do(t, srv, http.MethodDelete, "/api/v1/projects/p1/sessions/s1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["turns"])
}

func TestServer_ChatValidation(t *testing.T) {
	srv := newTestServer(t, newFakeAssistant())
	w := do(t, srv, http.MethodPost, "/api/v1/projects/p1/chat", `{"session_id":"s1","question":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"not found", akcioerr.New(akcioerr.CodeProjectStoreNotFound, "project does not exist"), http.StatusNotFound, "project does not exist"},
		{"invalid name", akcioerr.New(akcioerr.CodeProjectNameInvalid, "bad project name"), http.StatusBadRequest, "bad project name"},
		{"generation", akcioerr.New(akcioerr.CodeGenerationProviderFailure, "upstream 500"), http.StatusBadGateway, "generation_error: chat failed"},
		{"inconsistent", akcioerr.New(akcioerr.CodeProjectStateCheckInconsistent, "stores disagree"), http.StatusInternalServerError, "inconsistent_state"},
		{"uncoded", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newFakeAssistant()
			a.err = tt.err
			w := do(t, newTestServer(t, a), http.MethodPost, "/api/v1/projects/p1/chat", `{"session_id":"s1","question":"q"}`)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantDetail)
		})
	}
}

func TestServer_Drop(t *testing.T) {
	a := newFakeAssistant()
	a.chunks["p1"] = 1
	srv := newTestServer(t, a)

	w := do(t, srv, http.MethodDelete, "/api/v1/projects/p1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, http.MethodDelete, "/api/v1/projects/p1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Retrieve(t *testing.T) {
	w := do(t, newTestServer(t, newFakeAssistant()), http.MethodPost, "/api/v1/projects/p1/retrieve", `{"question":"alpha?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	chunks := decode(t, w)["chunks"].([]any)
	require.Len(t, chunks, 1)
	assert.Equal(t, "vector", chunks[0].(map[string]any)["origin"])
}

func TestServer_Providers(t *testing.T) {
	w := do(t, newTestServer(t, newFakeAssistant()), http.MethodGet, "/api/v1/providers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["providers"])

	p := fakeProviders{{Name: "openai", Metrics: health.Metrics{Available: true}}}
	w = do(t, newTestServer(t, newFakeAssistant(), server.WithProviders(p)), http.MethodGet, "/api/v1/providers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"openai"`)
}

func TestServer_RateLimit(t *testing.T) {
	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		RateLimit:  server.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2},
	}, newFakeAssistant())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", "").Code)
	w := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := newTestServer(t, newFakeAssistant())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
