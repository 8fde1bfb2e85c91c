// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package memory persists conversation turns per (project, session).
package memory

import (
	"context"
	"log/slog"

	"github.com/akcio-dev/akcio/internal/project"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Ledger is the only writer of turn tables. It does not serialise calls on
// one session; concurrent appends commit in whatever order the store does.
type Ledger struct {
	turns  store.TurnStore
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(l *slog.Logger) Option {
	return func(lg *Ledger) { lg.logger = l }
}

func New(turns store.TurnStore, opts ...Option) *Ledger {
	l := &Ledger{turns: turns, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the session's turns in insertion order. A missing table or
// session yields an empty slice.
func (l *Ledger) Get(ctx context.Context, projectName, session string) ([]store.Turn, error) {
	if err := validateSession(projectName, session); err != nil {
		return nil, err
	}
	ok, err := l.Check(ctx, projectName)
	if err != nil || !ok {
		return []store.Turn{}, err
	}
	turns, err := l.turns.ListTurns(ctx, projectName, session)
	if err != nil {
		return nil, classify(err, akcioerr.CodeMemoryReadFailure, "listing turns", projectName, session, "get")
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	return turns, nil
}

// Append ensures the project's table and commits each turn on its own. On
// failure the turns before the failing one stay committed.
func (l *Ledger) Append(ctx context.Context, projectName, session string, turns ...store.Turn) error {
	if err := project.ValidateName(projectName); err != nil {
		return err
	}
	if err := validateSession(projectName, session); err != nil {
		return err
	}
	if err := l.turns.EnsureTable(ctx, projectName); err != nil {
		return classify(err, akcioerr.CodeMemoryPersistFailure, "creating history table", projectName, session, "append")
	}
	for i, t := range turns {
		if err := l.turns.AppendTurn(ctx, projectName, session, t); err != nil {
			l.logger.Warn("turn append failed", "project", projectName, "session_id", session,
				"committed", i, "pending", len(turns)-i, "error", err)
			return akcioerr.With(
				classify(err, akcioerr.CodeMemoryPersistFailure, "appending turn", projectName, session, "append"),
				akcioerr.Field("committed", i))
		}
	}
	return nil
}

// Clear removes one session's turns. A missing table is a no-op.
func (l *Ledger) Clear(ctx context.Context, projectName, session string) error {
	if err := validateSession(projectName, session); err != nil {
		return err
	}
	ok, err := l.Check(ctx, projectName)
	if err != nil || !ok {
		return err
	}
	if err := l.turns.DeleteSession(ctx, projectName, session); err != nil {
		return classify(err, akcioerr.CodeMemoryPersistFailure, "clearing session", projectName, session, "clear")
	}
	return nil
}

// Drop removes the project's history table.
func (l *Ledger) Drop(ctx context.Context, projectName string) error {
	ok, err := l.Check(ctx, projectName)
	if err != nil {
		return err
	}
	if !ok {
		return akcioerr.New(akcioerr.CodeMemoryTableNotFound, "history table does not exist",
			akcioerr.FieldProject(projectName))
	}
	if err := l.turns.DropTable(ctx, projectName); err != nil {
		return classify(err, akcioerr.CodeMemoryTableDropFailure, "dropping history table", projectName, "", "drop")
	}
	l.logger.Info("history dropped", "project", projectName)
	return nil
}

// Check reports whether the project's history table exists.
func (l *Ledger) Check(ctx context.Context, projectName string) (bool, error) {
	if err := project.ValidateName(projectName); err != nil {
		return false, err
	}
	ok, err := l.turns.HasTable(ctx, projectName)
	if err != nil {
		return false, classify(err, akcioerr.CodeMemoryReadFailure, "checking history table", projectName, "", "check")
	}
	return ok, nil
}

// validateSession rejects the empty session id, which some backends cannot key.
func validateSession(projectName, session string) error {
	if session == "" {
		return akcioerr.New(akcioerr.CodeMemorySessionInvalid, "session id must not be empty",
			akcioerr.FieldProject(projectName))
	}
	return nil
}

func classify(err error, code akcioerr.Code, msg, projectName, session, op string) error {
	fields := []akcioerr.Attr{akcioerr.FieldProject(projectName), akcioerr.FieldOperation(op)}
	if session != "" {
		fields = append(fields, akcioerr.FieldSession(session))
	}
	return akcioerr.Classify(err, code, msg, fields...)
}
