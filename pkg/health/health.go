// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package health

import "time"

// Metrics is a point-in-time snapshot of a provider's health, safe to
// serialize to JSON.
type Metrics struct {
	FailureCount        int64      `json:"failure_count"`
	ConsecutiveFailures int64      `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil       *time.Time `json:"cooldown_until,omitempty"`
	Available           bool       `json:"available"`
}

// Provider pairs a provider name with its health snapshot.
type Provider struct {
	Name    string  `json:"name"`
	Metrics Metrics `json:"metrics"`
}
