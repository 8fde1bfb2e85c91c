// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package provider_test

import (
	"context"
	"sync"

	"github.com/akcio-dev/akcio/internal/provider"
	"github.com/akcio-dev/akcio/pkg/health"
)

// mockProvider streams a fixed script of events and tracks health when a
// tracker is attached.
type mockProvider struct {
	name    string
	events  []provider.ChatEvent
	chatErr error
	health  *provider.HealthTracker

	mu       sync.Mutex
	requests []provider.ChatRequest
	closed   bool
}

func newMockProvider(name string, text ...string) *mockProvider {
	m := &mockProvider{name: name, health: provider.MustHealthTracker()}
	for _, t := range text {
		m.events = append(m.events, provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: t})
	}
	m.events = append(m.events,
		provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &provider.Usage{InputTokens: 10, OutputTokens: 5}},
		provider.ChatEvent{Type: provider.EventTypeDone},
	)
	return m
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Available(context.Context) bool { return m.health.IsHealthy() }

func (m *mockProvider) ListModels(context.Context) ([]provider.ModelInfo, error) { return nil, nil }

func (m *mockProvider) Chat(_ context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.chatErr != nil {
		return nil, m.chatErr
	}
	ch := make(chan provider.ChatEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *mockProvider) Status(ctx context.Context) (provider.ProviderStatus, error) {
	return provider.ProviderStatus{Available: m.Available(ctx), Provider: m.name, Message: "ok"}, nil
}

func (m *mockProvider) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockProvider) RecordFailure()                { m.health.RecordFailure() }
func (m *mockProvider) RecordSuccess()                { m.health.RecordSuccess() }
func (m *mockProvider) HealthMetrics() health.Metrics { return m.health.HealthMetrics() }

func (m *mockProvider) lastRequest() provider.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// plainProvider does not report health.
type plainProvider struct {
	name      string
	available bool
}

func (p plainProvider) Name() string                   { return p.name }
func (p plainProvider) Available(context.Context) bool { return p.available }
func (p plainProvider) Close() error                   { return nil }
func (p plainProvider) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}
func (p plainProvider) Chat(context.Context, provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	ch := make(chan provider.ChatEvent)
	close(ch)
	return ch, nil
}
func (p plainProvider) Status(context.Context) (provider.ProviderStatus, error) {
	return provider.ProviderStatus{Available: p.available, Provider: p.name}, nil
}
