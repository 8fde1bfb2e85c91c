// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akcio-dev/akcio/internal/config"
	"github.com/akcio-dev/akcio/internal/provider"
	"github.com/akcio-dev/akcio/internal/secrets"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// defaultModels is the chat model `akcio init --provider` selects.
var defaultModels = map[provider.ProviderName]string{
	provider.ProviderOpenAI:     "gpt-3.5-turbo",
	provider.ProviderAnthropic:  "claude-3-5-haiku-latest",
	provider.ProviderGoogle:     "gemini-2.0-flash",
	provider.ProviderOpenRouter: "openai/gpt-4o-mini",
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: "Write a config file with every default spelled out. With --provider the\n" +
			"provider's API key is read from the OS keyring; store it with `akcio secret set`.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	cmd.Flags().String("path", "", "where to write the config (default ~/.config/akcio/akcio.yaml)")
	cmd.Flags().Bool("force", false, "overwrite an existing config file")
	cmd.Flags().String("provider", "", "language model provider: openai, anthropic, google or openrouter")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}
	force, _ := cmd.Flags().GetBool("force")
	name, _ := cmd.Flags().GetString("provider")

	cfg := config.Default()
	var keyName string
	if name != "" {
		model, ok := defaultModels[provider.ProviderName(name)]
		if !ok {
			return akcioerr.Errorf(akcioerr.CodeCLIInputInvalid, "unknown provider %q (want one of %s)", name, strings.Join(providerNames(), ", "))
		}
		keyName = name + "_api_key"
		cfg.Providers = map[string]config.ProviderConfig{
			name: {APIKey: secrets.Ref(secrets.DefaultService, keyName)},
		}
		cfg.Models.Default = name + "/" + model
	}

	if err := config.WriteFile(path, cfg, force); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
	if keyName != "" {
		_, _ = fmt.Fprintf(out, "Store the API key with: akcio secret set %s --validate %s\n", keyName, name)
	}
	return nil
}

func providerNames() []string {
	names := make([]string, 0, len(defaultModels))
	for p := range defaultModels {
		names = append(names, string(p))
	}
	slices.Sort(names)
	return names
}
