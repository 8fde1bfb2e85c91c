// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a project's document store and history exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := projectFlag(cmd)
			if err != nil {
				return err
			}
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				st, err := app.Assistant.Check(ctx, project)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "store: %t\nmemory: %t\n", st.Store, st.Memory)
				return err
			})
		},
	}
	addProjectFlag(cmd)
	return cmd
}

func newCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored chunks in a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := projectFlag(cmd)
			if err != nil {
				return err
			}
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				n, err := app.Assistant.Count(ctx, project)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	addProjectFlag(cmd)
	return cmd
}

func newDropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete a project's documents and conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := projectFlag(cmd)
			if err != nil {
				return err
			}
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return akcioerr.Errorf(akcioerr.CodeCLIInputInvalid, "dropping %s deletes its documents and history; pass --yes to confirm", project)
			}
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				if err := app.Assistant.Drop(ctx, project); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Dropped %s\n", project)
				return err
			})
		},
	}
	addProjectFlag(cmd)
	cmd.Flags().Bool("yes", false, "confirm the drop")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear a session's conversation history",
	}
	cmd.AddCommand(newHistorySubCmd("get", "Print a session's turns", false))
	cmd.AddCommand(newHistorySubCmd("clear", "Delete a session's turns", true))
	return cmd
}

func newHistorySubCmd(use, short string, clearTurns bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := projectFlag(cmd)
			if err != nil {
				return err
			}
			session, _ := cmd.Flags().GetString("session")
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				var turns []store.Turn
				if clearTurns {
					turns, err = app.Assistant.ClearHistory(ctx, project, session)
				} else {
					turns, err = app.Assistant.GetHistory(ctx, project, session)
				}
				if err != nil {
					return err
				}
				return printTurns(cmd.OutOrStdout(), turns)
			})
		},
	}
	addProjectFlag(cmd)
	cmd.Flags().StringP("session", "s", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func printTurns(out io.Writer, turns []store.Turn) error {
	if len(turns) == 0 {
		_, err := fmt.Fprintln(out, "No history.")
		return err
	}
	for _, t := range turns {
		if _, err := fmt.Fprintf(out, "Q: %s\nA: %s\n\n", t.Question, t.Answer); err != nil {
			return err
		}
	}
	return nil
}
