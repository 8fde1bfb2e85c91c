// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

func TestProjectLifecycle(t *testing.T) {
	p := useScriptedProvider(t, "Install it with go install.")
	cfg := writeTestConfig(t)

	doc := filepath.Join(t.TempDir(), "install.md")
	require.NoError(t, os.WriteFile(doc, []byte("Akcio is installed with go install. It needs Go 1.25."), 0o600))

	out, err := execute(t, "", "insert", "-c", cfg, "-p", "kb", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "into kb")

	out, err = execute(t, "", "count", "-c", cfg, "-p", "kb")
	require.NoError(t, err)
	assert.NotEqual(t, "0", strings.TrimSpace(out))

	out, err = execute(t, "", "check", "-c", cfg, "-p", "kb")
	require.NoError(t, err)
	assert.Equal(t, "store: true\nmemory: false\n", out)

	out, err = execute(t, "", "search", "-c", cfg, "-p", "kb", "how", "is", "akcio", "installed")
	require.NoError(t, err)
	assert.Contains(t, out, doc+"#0")

	out, err = execute(t, "", "chat", "-c", cfg, "-p", "kb", "-s", "s1", "How do I install Akcio?")
	require.NoError(t, err)
	assert.Equal(t, "Install it with go install.\n", out)
	require.Len(t, p.requests, 1)
	assert.Equal(t, "test-model", p.requests[0].Model)
	assert.Contains(t, p.requests[0].SystemPrompt, "go install")

	out, err = execute(t, "", "history", "get", "-c", cfg, "-p", "kb", "-s", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Q: How do I install Akcio?\nA: Install it with go install.\n\n", out)

	out, err = execute(t, "", "check", "-c", cfg, "-p", "kb")
	require.NoError(t, err)
	assert.Contains(t, out, "memory: true")

	out, err = execute(t, "", "history", "clear", "-c", cfg, "-p", "kb", "-s", "s1")
	require.NoError(t, err)
	assert.Equal(t, "No history.\n", out)

	_, err = execute(t, "", "drop", "-c", cfg, "-p", "kb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err = execute(t, "", "drop", "-c", cfg, "-p", "kb", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Dropped kb\n", out)

	_, err = execute(t, "", "count", "-c", cfg, "-p", "kb")
	require.Error(t, err)
	assert.True(t, akcioerr.IsNotFound(err))
}

func TestInsert_TextFromStdin(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := execute(t, "Opening hours are nine to five.", "insert", "-c", cfg, "-p", "faq", "--type", "text", "--name", "hours", "-")
	require.NoError(t, err)
	assert.Equal(t, "Inserted 1 chunks into faq\n", out)

	out, err = execute(t, "", "search", "-c", cfg, "-p", "faq", "opening", "hours")
	require.NoError(t, err)
	assert.Contains(t, out, "hours#0")
	assert.Contains(t, out, "Opening hours are nine to five.")
}

func TestInsert_BadSourceType(t *testing.T) {
	_, err := execute(t, "", "insert", "-c", writeTestConfig(t), "-p", "kb", "--type", "ftp", "x")
	require.Error(t, err)
	assert.True(t, akcioerr.HasCode(err, akcioerr.CodeIngestSourceTypeInvalid))
}

func TestChat_MissingProject(t *testing.T) {
	p := useScriptedProvider(t, "unused")
	_, err := execute(t, "", "chat", "-c", writeTestConfig(t), "-p", "nope", "-s", "s1", "hello?")
	require.Error(t, err)
	assert.True(t, akcioerr.IsNotFound(err))
	assert.Empty(t, p.requests)
}

func TestChat_ReadsQuestionsFromStdin(t *testing.T) {
	p := useScriptedProvider(t, "ok")
	cfg := writeTestConfig(t)
	_, err := execute(t, "Some notes about the project.", "insert", "-c", cfg, "-p", "kb", "--type", "text", "-")
	require.NoError(t, err)

	out, err := execute(t, "first question\n\nsecond question\n", "chat", "-c", cfg, "-p", "kb", "-s", "s2")
	require.NoError(t, err)
	assert.Equal(t, "ok\nok\n", out)
	require.Len(t, p.requests, 2)

	// The second request replays the first turn.
	msgs := p.requests[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "first question", msgs[0].Content)
	assert.Equal(t, "second question", msgs[2].Content)
}

func TestChat_LoopReportsErrorsAndContinues(t *testing.T) {
	useScriptedProvider(t, "ok")
	out, err := execute(t, "q1\nq2\n", "chat", "-c", writeTestConfig(t), "-p", "missing", "-s", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "error: "))
}
