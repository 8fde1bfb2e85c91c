// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file is readable by
// group or others, since it may hold provider keys or a database DSN.
func WarnInsecurePermissions(path string) {
	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}

	const groupOrOtherRead fs.FileMode = 0o044
	if info.Mode().Perm()&groupOrOtherRead != 0 {
		slog.Warn("config file is readable by other users; credentials in it may leak",
			"path", path,
			"mode", info.Mode(),
			"recommended", "0600",
		)
	}
}
