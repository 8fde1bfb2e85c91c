// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/akcio-dev/akcio/internal/assistant"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask questions about a project's documents",
		Long: "Answer a question from the project's documents and the session history.\n" +
			"Without a question, read one question per line from stdin until EOF.",
		Example: "  akcio chat -p docs \"How do I install it?\"\n" +
			"  akcio chat -p docs --session 7f0c... \"And on Windows?\"",
		RunE: runChat,
	}
	addProjectFlag(cmd)
	cmd.Flags().StringP("session", "s", "", "session id (default: a new random id)")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	project, err := projectFlag(cmd)
	if err != nil {
		return err
	}
	session, _ := cmd.Flags().GetString("session")
	if session == "" {
		session = uuid.NewString()
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", session)
	}

	if len(args) > 0 {
		question := strings.Join(args, " ")
		return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
			return ask(ctx, cmd.OutOrStdout(), app.Assistant, session, project, question)
		})
	}

	return runWithApp(cmd, false, func(ctx context.Context, app *App) error {
		return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), app.Assistant, session, project)
	})
}

// ask prints the answer even when recording the turn failed.
func ask(ctx context.Context, out io.Writer, a *assistant.Service, session, project, question string) error {
	answer, err := a.Chat(ctx, session, project, question)
	if answer != "" {
		_, _ = fmt.Fprintln(out, answer)
	}
	return err
}

// chatLoop answers stdin line by line. Failed questions are reported and the
// loop continues; only a closed input or cancellation ends it.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, a *assistant.Service, session, project string) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if err := ask(ctx, out, a, session, project, question); err != nil {
			if ctx.Err() != nil {
				return err
			}
			slog.Error("chat failed", "error", err)
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return akcioerr.Errorf(akcioerr.CodeCLIInputInvalid, "reading questions: %w", err)
	}
	return nil
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Show the chunks retrieved for a question without generating an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	addProjectFlag(cmd)
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	project, err := projectFlag(cmd)
	if err != nil {
		return err
	}
	question := strings.Join(args, " ")

	return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
		hits, err := app.Assistant.Retrieve(ctx, question, project)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(hits) == 0 {
			_, err = fmt.Fprintln(out, "No matching chunks.")
			return err
		}
		for i, h := range hits {
			_, _ = fmt.Fprintf(out, "%d. %s (%s, score %.4f)\n   %s\n", i+1, h.TextID, h.Origin, h.Score, preview(h.Text, 200))
		}
		return nil
	})
}

// preview flattens text to one line of at most n runes.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > n {
		return string(r[:n]) + "..."
	}
	return text
}
