// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package provider

import (
	"sync"
	"time"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
	"github.com/akcio-dev/akcio/pkg/health"
)

// DefaultHealthCooldown is how long a tripped provider is skipped by routing.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker trips after a run of consecutive failures and keeps the
// provider out of routing until the cooldown has elapsed. One success resets
// the run.
type HealthTracker struct {
	mu          sync.RWMutex
	tripped     bool
	failedAt    time.Time
	cooldown    time.Duration
	threshold   int64
	consecutive int64
	total       int64
	nowFunc     func() time.Time
}

// NewHealthTracker creates a tracker that trips on the first failure.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	return NewHealthTrackerWithThreshold(cooldown, 1)
}

// NewHealthTrackerWithThreshold creates a tracker that trips after threshold
// consecutive failures.
func NewHealthTrackerWithThreshold(cooldown time.Duration, threshold int) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, akcioerr.Errorf(akcioerr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	if threshold <= 0 {
		return nil, akcioerr.Errorf(akcioerr.CodeConfigValidateInvalidValue,
			"health tracker threshold must be positive, got %d", threshold)
	}
	return &HealthTracker{
		cooldown:  cooldown,
		threshold: int64(threshold),
		nowFunc:   time.Now,
	}, nil
}

// MustHealthTracker is NewHealthTracker for the constant default cooldown.
func MustHealthTracker() *HealthTracker {
	h, err := NewHealthTracker(DefaultHealthCooldown)
	if err != nil {
		panic(err)
	}
	return h
}

// availableLocked requires h.mu.
func (h *HealthTracker) availableLocked() bool {
	if !h.tripped {
		return true
	}
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.availableLocked()
}

func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.tripped = false
	h.consecutive = 0
	h.mu.Unlock()
}

func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total++
	h.consecutive++
	h.failedAt = h.nowFunc()
	if h.consecutive >= h.threshold {
		h.tripped = true
	}
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

func (h *HealthTracker) HealthMetrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		FailureCount:        h.total,
		ConsecutiveFailures: h.consecutive,
		Available:           h.availableLocked(),
	}
	if h.total > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}
	if h.tripped {
		until := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}
