// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/akcio-dev/akcio/internal/provider"
	"github.com/akcio-dev/akcio/internal/secrets"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// keyValidator checks provider keys before they are stored. Tests point its
// endpoints at a local server.
var keyValidator = provider.KeyValidator{Client: &http.Client{Timeout: 10 * time.Second}}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Store and delete secrets under the akcio keyring service. Config values of the form\n" +
			secrets.Ref(secrets.DefaultService, "<name>") + " are resolved from these entries.",
	}
	cmd.AddCommand(newSecretSetCmd(), newSecretDeleteCmd())
	return cmd
}

func newSecretSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret; the value is read from stdin unless --value is given",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretSet,
	}
	cmd.Flags().String("value", "", "secret value (visible in shell history; prefer stdin)")
	cmd.Flags().String("validate", "", "check the value as an API key for this provider before storing")
	return cmd
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	value, _ := cmd.Flags().GetString("value")
	if value == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return akcioerr.Errorf(akcioerr.CodeCLIInputInvalid, "reading secret from stdin: %w", err)
		}
		value = strings.TrimSpace(line)
	}
	if value == "" {
		return akcioerr.New(akcioerr.CodeCLIInputInvalid, "secret value is empty")
	}

	if p, _ := cmd.Flags().GetString("validate"); p != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		if err := keyValidator.Validate(ctx, provider.ProviderName(p), value); err != nil {
			return err
		}
	}

	if err := secrets.NewKeyring().Set(secrets.DefaultService, name, value); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s; reference it as %s\n", name, secrets.Ref(secrets.DefaultService, name))
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := secrets.NewKeyring().Delete(secrets.DefaultService, name); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}
