// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akcio-dev/akcio/internal/assistant"
	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/server"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec registers every route against a stub assistant and returns
// the OpenAPI document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, stubAssistant{})
	if err != nil {
		return nil, akcioerr.Errorf(akcioerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// stubAssistant is never called; handlers only need to be registered.
type stubAssistant struct{}

func (stubAssistant) Insert(context.Context, string, string, chunker.SourceType) (int64, error) {
	return 0, nil
}
func (stubAssistant) InsertText(context.Context, string, string, string) (int64, error) { return 0, nil }
func (stubAssistant) Chat(context.Context, string, string, string) (string, error)      { return "", nil }
func (stubAssistant) Retrieve(context.Context, string, string) ([]store.ScoredChunk, error) {
	return nil, nil
}
func (stubAssistant) Check(context.Context, string) (assistant.Status, error) {
	return assistant.Status{}, nil
}
func (stubAssistant) Count(context.Context, string) (int64, error) { return 0, nil }
func (stubAssistant) Drop(context.Context, string) error           { return nil }
func (stubAssistant) GetHistory(context.Context, string, string) ([]store.Turn, error) {
	return nil, nil
}
func (stubAssistant) ClearHistory(context.Context, string, string) ([]store.Turn, error) {
	return nil, nil
}
