// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/watch"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

func newInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <source>",
		Short: "Ingest a file, URL or text into a project",
		Long: "Chunk, embed and store a source. The project is created on first use.\n" +
			"With --type text the argument is the text itself; use - to read it from stdin.",
		Example: "  akcio insert -p docs README.md\n" +
			"  akcio insert -p docs https://example.com/guide.html\n" +
			"  echo 'Opening hours are 9 to 5.' | akcio insert -p faq --type text --name hours -",
		Args: cobra.ExactArgs(1),
		RunE: runInsert,
	}
	addProjectFlag(cmd)
	cmd.Flags().StringP("type", "t", "", "source type: file, url or text (default: url for http(s) sources, else file)")
	cmd.Flags().String("name", "text", "label used in chunk ids for --type text")
	return cmd
}

func runInsert(cmd *cobra.Command, args []string) error {
	project, err := projectFlag(cmd)
	if err != nil {
		return err
	}
	source := args[0]
	sourceType, err := resolveSourceType(cmd, source)
	if err != nil {
		return err
	}
	if sourceType == chunker.SourceText && source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return akcioerr.Errorf(akcioerr.CodeCLIInputInvalid, "reading stdin: %w", err)
		}
		source = string(data)
	}

	return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
		var n int64
		if sourceType == chunker.SourceText {
			name, _ := cmd.Flags().GetString("name")
			n, err = app.Assistant.InsertText(ctx, name, source, project)
		} else {
			n, err = app.Assistant.Insert(ctx, source, project, sourceType)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d chunks into %s\n", n, project)
		return err
	})
}

func resolveSourceType(cmd *cobra.Command, source string) (chunker.SourceType, error) {
	raw, _ := cmd.Flags().GetString("type")
	if raw == "" {
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			return chunker.SourceURL, nil
		}
		return chunker.SourceFile, nil
	}
	return chunker.ParseSourceType(raw)
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Ingest files as they are created or changed in a directory",
		Long: "Watch a directory and ingest each new or modified document into the project.\n" +
			"Changed files are ingested again; earlier chunks are not removed.",
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
	addProjectFlag(cmd)
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "wait this long after the last change before ingesting")
	cmd.Flags().StringSlice("ext", nil, "file extensions to ingest (default .md, .txt, .html, .htm)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	project, err := projectFlag(cmd)
	if err != nil {
		return err
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")
	exts, _ := cmd.Flags().GetStringSlice("ext")

	return runWithApp(cmd, false, func(ctx context.Context, app *App) error {
		opts := []watch.Option{watch.WithDebounce(debounce)}
		if len(exts) > 0 {
			opts = append(opts, watch.WithExtensions(exts...))
		}
		w, err := watch.New(args[0], project, app.Assistant, opts...)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for project %s (Ctrl+C to stop)\n", args[0], project)
		return w.Run(ctx)
	})
}
