// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package server

import "time"

// Limiter exposes the token bucket with a controllable clock.
type Limiter struct{ l *limiter }

func NewTestLimiter(cfg RateLimitConfig, now func() time.Time) Limiter {
	l := newLimiter(cfg)
	l.now = now
	return Limiter{l}
}

func (t Limiter) Allow(ip string) bool { return t.l.allow(ip) }
func (t Limiter) Sweep()               { t.l.sweep() }
func (t Limiter) Visitors() int        { return len(t.l.visitors) }
