// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akcio-dev/akcio/internal/config"
	"github.com/akcio-dev/akcio/internal/secrets"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// logLevel is shared by the default handler so the level can follow the
// config file once it is loaded.
var logLevel = new(slog.LevelVar)

// NewRootCmd creates the root akcio command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "akcio",
		Short: "Akcio: question answering over your documents",
		Long: "Akcio ingests files, web pages and text into per-project vector stores " +
			"and answers questions with a language model grounded on the retrieved chunks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ./akcio.yaml or ~/.config/akcio/akcio.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().Duration("timeout", 0, "abort one-shot commands after this long (0 disables)")

	root.AddCommand(
		newServeCmd(),
		newInsertCmd(),
		newWatchCmd(),
		newChatCmd(),
		newSearchCmd(),
		newCheckCmd(),
		newCountCmd(),
		newDropCmd(),
		newHistoryCmd(),
		newInitCmd(),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

func setupLogging(cmd *cobra.Command) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel})))
}

// loadConfig reads the --config file, or the first config found in the
// working directory and the user config directory. Keyring references are
// resolved from the OS keyring.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = discoverConfig()
	}
	cfg, err := config.Load(path, secrets.NewKeyring())
	if err != nil {
		return nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.Logging.Level)); err == nil {
			logLevel.Set(lvl)
		}
	}
	slog.Debug("config loaded", "path", path, "data_dir", cfg.DataDir)
	return cfg, nil
}

func discoverConfig() string {
	candidates := []string{"akcio.yaml"}
	if p, err := config.DefaultConfigPath(); err == nil {
		candidates = append(candidates, p)
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			abs, _ := filepath.Abs(p)
			return abs
		}
	}
	return ""
}

// commandContext is cancelled on SIGINT/SIGTERM and, when bounded is set,
// after --timeout.
func commandContext(cmd *cobra.Command, bounded bool) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if !bounded || timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// runWithApp loads config, wires the app and runs fn with it.
func runWithApp(cmd *cobra.Command, bounded bool, fn func(ctx context.Context, app *App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, bounded)
	defer cancel()

	app, err := Wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("closing stores", "error", err)
		}
	}()
	return fn(ctx, app)
}

func addProjectFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("project", "p", "", "project name")
	_ = cmd.MarkFlagRequired("project")
}

func projectFlag(cmd *cobra.Command) (string, error) {
	p, _ := cmd.Flags().GetString("project")
	if p == "" {
		return "", akcioerr.New(akcioerr.CodeCLIInputInvalid, "--project is required")
	}
	return p, nil
}
