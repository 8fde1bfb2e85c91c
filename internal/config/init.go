// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package config

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

const header = "# Akcio configuration, generated by `akcio init`.\n" +
	"# Values may be overridden with AKCIO_* environment variables, e.g.\n" +
	"# AKCIO_RETRIEVAL_TOP_K=5. Credentials may be keyring://service/key references.\n\n"

// DefaultConfigPath returns ~/.config/akcio/akcio.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", akcioerr.Errorf(akcioerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "akcio", "akcio.yaml"), nil
}

// Render encodes cfg as a commented YAML config file.
func Render(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, akcioerr.Errorf(akcioerr.CodeConfigParseInvalidFormat, "encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, akcioerr.Errorf(akcioerr.CodeConfigParseInvalidFormat, "encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders cfg to path with owner-only permissions. An existing file
// is kept unless force is set.
func WriteFile(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return akcioerr.Errorf(akcioerr.CodeConfigValidateInvalidValue, "config %s already exists; use --force to overwrite", path)
	}
	data, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return akcioerr.Errorf(akcioerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return akcioerr.Errorf(akcioerr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}
	return nil
}
