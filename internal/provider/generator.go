// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package provider

import (
	"context"
	"log/slog"
	"strings"

	"github.com/akcio-dev/akcio/internal/prompt"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}

// Compile-time interface check.
var _ Generator = (*RegistryGenerator)(nil)

// RegistryGenerator routes each prompt through a Registry and collects the
// streamed answer. A failed call is reported to the provider's health tracker
// and returned; it is not retried.
type RegistryGenerator struct {
	registry *Registry
	model    string
	options  ChatOptions
	logger   *slog.Logger
}

type GeneratorOption func(*RegistryGenerator)

// WithModel selects a "provider/model" reference instead of the registry default.
func WithModel(ref string) GeneratorOption {
	return func(g *RegistryGenerator) { g.model = ref }
}

func WithTemperature(t float32) GeneratorOption {
	return func(g *RegistryGenerator) { g.options.Temperature = &t }
}

func WithMaxTokens(n int) GeneratorOption {
	return func(g *RegistryGenerator) { g.options.MaxTokens = n }
}

func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *RegistryGenerator) { g.logger = l }
}

func NewGenerator(r *Registry, opts ...GeneratorOption) *RegistryGenerator {
	g := &RegistryGenerator{registry: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *RegistryGenerator) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	prov, model, err := g.registry.Route(ctx, g.model, nil)
	if err != nil {
		return "", akcioerr.Classify(err, akcioerr.CodeGenerationProviderFailure, "routing generation request")
	}
	name := prov.Name()

	events, err := prov.Chat(ctx, ChatRequest{
		Model:        model,
		SystemPrompt: p.System,
		Messages:     toMessages(p.Messages),
		Options:      g.options,
	})
	if err != nil {
		g.recordFailure(prov)
		return "", akcioerr.Classify(err, akcioerr.CodeGenerationProviderFailure, "starting chat",
			akcioerr.FieldProvider(name))
	}

	answer, usage, err := drain(ctx, events)
	if err != nil {
		g.recordFailure(prov)
		return "", akcioerr.Classify(err, akcioerr.CodeGenerationProviderFailure, "streaming chat",
			akcioerr.FieldProvider(name))
	}
	g.recordSuccess(prov)

	if usage != nil {
		g.logger.Debug("generation complete", "provider", name, "model", model,
			"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens)
	}
	if strings.TrimSpace(answer) == "" {
		return "", akcioerr.New(akcioerr.CodeGenerationEmptyResponse, "provider returned an empty answer",
			akcioerr.FieldProvider(name))
	}
	return answer, nil
}

// drain collects text deltas until the stream ends. On cancellation the rest
// of the stream is discarded in the background so the sender never blocks.
func drain(ctx context.Context, events <-chan ChatEvent) (string, *Usage, error) {
	var (
		b     strings.Builder
		usage *Usage
	)
	for {
		select {
		case <-ctx.Done():
			go discard(events)
			return "", nil, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return b.String(), usage, nil
			}
			switch ev.Type {
			case EventTypeTextDelta:
				b.WriteString(ev.Text)
			case EventTypeUsage:
				usage = ev.Usage
			case EventTypeError:
				go discard(events)
				return "", nil, akcioerr.New(akcioerr.CodeProviderUpstreamFailure, ev.Error)
			case EventTypeDone:
				go discard(events)
				return b.String(), usage, nil
			}
		}
	}
}

func discard(events <-chan ChatEvent) {
	for range events {
	}
}

func toMessages(msgs []prompt.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		role := MessageRoleUser
		if m.Role == prompt.RoleAssistant {
			role = MessageRoleAssistant
		}
		out = append(out, Message{Role: role, Content: m.Content})
	}
	return out
}

func (g *RegistryGenerator) recordFailure(p Provider) {
	if hr, ok := p.(HealthReporter); ok {
		hr.RecordFailure()
	}
}

func (g *RegistryGenerator) recordSuccess(p Provider) {
	if hr, ok := p.(HealthReporter); ok {
		hr.RecordSuccess()
	}
}
