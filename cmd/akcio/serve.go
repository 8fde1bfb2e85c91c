// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/akcio-dev/akcio/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long:  "Load configuration, open the stores and serve the REST API with /health and /metrics.",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "override listen address (host:port)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	return runWithApp(cmd, false, func(ctx context.Context, app *App) error {
		srv, err := newServer(cmd, app)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()
		return srv.Start(ctx)
	})
}

func newServer(cmd *cobra.Command, app *App) (*server.Server, error) {
	cfg := app.Config.Server
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}
	return server.New(server.Config{
		ListenAddr:  cfg.Listen,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}, app.Assistant,
		server.WithProviders(app.Providers),
		server.WithGatherer(app.Metrics),
	)
}
