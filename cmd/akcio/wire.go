// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/akcio-dev/akcio/internal/assistant"
	"github.com/akcio-dev/akcio/internal/chunker"
	"github.com/akcio-dev/akcio/internal/config"
	"github.com/akcio-dev/akcio/internal/embedding"
	"github.com/akcio-dev/akcio/internal/memory"
	"github.com/akcio-dev/akcio/internal/pipeline"
	"github.com/akcio-dev/akcio/internal/project"
	"github.com/akcio-dev/akcio/internal/prompt"
	"github.com/akcio-dev/akcio/internal/provider"
	anthropicprov "github.com/akcio-dev/akcio/internal/provider/anthropic"
	googleprov "github.com/akcio-dev/akcio/internal/provider/google"
	openaiprov "github.com/akcio-dev/akcio/internal/provider/openai"
	openrouterprov "github.com/akcio-dev/akcio/internal/provider/openrouter"
	"github.com/akcio-dev/akcio/internal/store"
	_ "github.com/akcio-dev/akcio/internal/store/bolt"     // register bolt memory backend
	_ "github.com/akcio-dev/akcio/internal/store/postgres" // register postgres memory backend
	_ "github.com/akcio-dev/akcio/internal/store/qdrant"   // register qdrant vector backend
	_ "github.com/akcio-dev/akcio/internal/store/sqlite"   // register sqlite backends
	"github.com/akcio-dev/akcio/internal/tokens"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// App holds the wired subsystems for one CLI invocation.
type App struct {
	Config    *config.Config
	Assistant *assistant.Service
	Providers *provider.Registry
	Metrics   *prometheus.Registry

	closers []io.Closer
}

// Wire builds every subsystem from cfg. On failure anything already opened
// is closed again.
func Wire(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	app := &App{Config: cfg, Metrics: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, akcioerr.Errorf(akcioerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}
	app.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pipeline.NewMetrics(app.Metrics)

	// 1. Stores.
	storeCfg := cfg.StorageConfig()
	spec, err := cfg.CollectionSpec()
	if err != nil {
		return nil, akcioerr.Wrap(err, akcioerr.CodeCLISetupFailure, "building collection spec")
	}
	vector, err := store.NewVectorIndex(storeCfg)
	if err != nil {
		return nil, akcioerr.Wrapf(err, akcioerr.CodeCLISetupFailure, "opening %s vector index", storeCfg.VectorBackend)
	}
	app.closers = append(app.closers, vector)

	projectOpts := []project.Option{project.WithCollectionSpec(spec)}
	if cfg.Store.Scalar.Enabled {
		scalar, err := store.NewScalarIndex(storeCfg)
		if err != nil {
			return nil, akcioerr.Wrapf(err, akcioerr.CodeCLISetupFailure, "opening %s keyword index", storeCfg.ScalarBackend)
		}
		app.closers = append(app.closers, scalar)
		projectOpts = append(projectOpts, project.WithScalar(scalar))
	}
	projects, err := project.New(vector, projectOpts...)
	if err != nil {
		return nil, akcioerr.Wrap(err, akcioerr.CodeCLISetupFailure, "creating project manager")
	}

	turns, err := store.NewTurnStore(storeCfg)
	if err != nil {
		return nil, akcioerr.Wrapf(err, akcioerr.CodeCLISetupFailure, "opening %s memory store", storeCfg.TurnBackend)
	}
	app.closers = append(app.closers, turns)
	ledger := memory.New(turns)

	// 2. Embedding and chunking.
	embedder, err := embedding.New(ctx, cfg.EmbeddingConfig())
	if err != nil {
		return nil, akcioerr.Wrap(err, akcioerr.CodeCLISetupFailure, "creating embedder")
	}
	counter := tokens.Default()
	textChunker := chunker.New(
		chunker.WithCounter(counter),
		chunker.WithFetchTimeout(cfg.Ingest.FetchTimeout),
	)

	// 3. Generation.
	app.Providers = provider.NewRegistry()
	app.closers = append(app.closers, app.Providers)
	registerProviders(ctx, cfg, app.Providers)
	if err := routeModels(cfg, app.Providers); err != nil {
		return nil, err
	}
	generator := provider.NewGenerator(app.Providers,
		provider.WithTemperature(float32(cfg.Models.Temperature)),
		provider.WithMaxTokens(cfg.Models.MaxTokens),
	)
	builder := prompt.Default(
		prompt.WithCounter(counter),
		prompt.WithMaxHistoryTokens(cfg.Prompt.MaxHistoryTokens),
		prompt.WithMaxContextChunks(cfg.Prompt.MaxContextChunks),
	)

	// 4. Pipelines and facade.
	ingest := pipeline.NewIngest(projects, textChunker, embedder,
		pipeline.WithChunkSize(cfg.Ingest.ChunkSize),
		pipeline.WithBatchSize(cfg.Ingest.BatchSize),
		pipeline.WithIngestMetrics(metrics),
	)
	search := pipeline.NewSearch(projects, embedder, builder, generator,
		pipeline.WithTopK(cfg.Retrieval.TopK),
		pipeline.WithThreshold(cfg.Retrieval.Threshold),
		pipeline.WithSearchMetrics(metrics),
	)
	app.Assistant, err = assistant.New(assistant.Deps{
		Projects: projects,
		Memory:   ledger,
		Ingest:   ingest,
		Search:   search,
	})
	if err != nil {
		return nil, akcioerr.Wrap(err, akcioerr.CodeCLISetupFailure, "creating assistant")
	}
	return app, nil
}

// Close releases stores and providers in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// providerFactory builds a provider.Provider from its config section.
type providerFactory func(context.Context, config.ProviderConfig) (provider.Provider, error)

// providerFactories maps provider names to constructors. Tests replace
// entries to avoid network calls.
var providerFactories = map[string]providerFactory{
	"anthropic": func(_ context.Context, pc config.ProviderConfig) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL})
	},
	"google": func(ctx context.Context, pc config.ProviderConfig) (provider.Provider, error) {
		return googleprov.New(ctx, googleprov.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL})
	},
	"openai": func(_ context.Context, pc config.ProviderConfig) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL})
	},
	"openrouter": func(_ context.Context, pc config.ProviderConfig) (provider.Provider, error) {
		return openrouterprov.New(openrouterprov.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, AppName: "Akcio"})
	},
}

// registerProviders registers every configured provider it can build.
// Unknown names and empty keys are logged and skipped.
func registerProviders(ctx context.Context, cfg *config.Config, reg *provider.Registry) {
	for name, pc := range cfg.Providers {
		if pc.APIKey == "" {
			slog.Warn("skipping provider with empty API key", "provider", name)
			continue
		}
		factory, ok := providerFactories[name]
		if !ok {
			slog.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}
		p, err := factory(ctx, pc)
		if err != nil {
			slog.Warn("failed to create provider", "provider", name, "error", err)
			continue
		}
		reg.Register(name, p)
		slog.Debug("registered provider", "provider", name)
	}
}

// routeModels points the registry at models.default and the failover chain.
// Without a registered default provider, ingestion and retrieval still work
// and chat fails with a generation error.
func routeModels(cfg *config.Config, reg *provider.Registry) error {
	if len(reg.Names()) == 0 {
		slog.Warn("no language model provider configured; chat is unavailable", "model", cfg.Models.Default)
		return nil
	}
	if err := reg.SetDefault(cfg.Models.Default); err != nil {
		return akcioerr.Wrapf(err, akcioerr.CodeCLISetupFailure, "setting default model %s", cfg.Models.Default)
	}
	if len(cfg.Models.Failover) > 0 {
		if err := reg.SetFailover(cfg.Models.Failover); err != nil {
			return akcioerr.Wrap(err, akcioerr.CodeCLISetupFailure, "setting failover chain")
		}
	}
	return nil
}
