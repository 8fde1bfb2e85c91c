// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package prompt assembles the model prompt from a question, retrieved
// context and conversation history.
package prompt

import (
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/akcio-dev/akcio/internal/store"
	"github.com/akcio-dev/akcio/internal/tokens"
)

// Role is the speaker of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Prompt is a provider-neutral chat prompt. The last message is the question.
type Prompt struct {
	System   string
	Messages []Message
}

// Builder renders a Prompt. Implementations must not fail; a builder that
// can fail should validate its configuration at construction.
type Builder interface {
	Build(question string, chunks []store.ScoredChunk, history []store.Turn) Prompt
}

// DefaultSystemTemplate is rendered with .Context and .Question.
const DefaultSystemTemplate = `Your code name is Akcio. Akcio acts like a very senior engineer who knows the project's documentation well.
Answer the user's question using the context below when it is relevant.
If the context does not contain the answer, say that you do not know rather than guessing.

Context:
{{.Context}}`

const noContext = "No relevant context was found."

// Compile-time interface check.
var _ Builder = (*TemplateBuilder)(nil)

// TemplateBuilder renders the system message from a text/template and replays
// as much recent history as fits the token budget.
type TemplateBuilder struct {
	tmpl             *template.Template
	counter          *tokens.Counter
	maxHistoryTokens int
	maxContextChunks int
}

type Option func(*TemplateBuilder)

// WithMaxHistoryTokens bounds replayed history. Zero or less replays all turns.
func WithMaxHistoryTokens(n int) Option {
	return func(b *TemplateBuilder) { b.maxHistoryTokens = n }
}

// WithMaxContextChunks bounds how many retrieved chunks enter the prompt.
// Zero or less includes all of them.
func WithMaxContextChunks(n int) Option {
	return func(b *TemplateBuilder) { b.maxContextChunks = n }
}

func WithCounter(c *tokens.Counter) Option {
	return func(b *TemplateBuilder) { b.counter = c }
}

// NewTemplateBuilder parses tmpl; an empty tmpl selects DefaultSystemTemplate.
func NewTemplateBuilder(tmpl string, opts ...Option) (*TemplateBuilder, error) {
	if tmpl == "" {
		tmpl = DefaultSystemTemplate
	}
	t, err := template.New("system").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}

	b := &TemplateBuilder{
		tmpl:             t,
		counter:          tokens.Default(),
		maxHistoryTokens: 1024,
		maxContextChunks: 5,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Default returns a builder for DefaultSystemTemplate.
func Default(opts ...Option) *TemplateBuilder {
	b, err := NewTemplateBuilder(DefaultSystemTemplate, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *TemplateBuilder) Build(question string, chunks []store.ScoredChunk, history []store.Turn) Prompt {
	var sys strings.Builder
	data := struct{ Context, Question string }{Context: b.context(chunks), Question: question}
	if err := b.tmpl.Execute(&sys, data); err != nil {
		// The template was parsed at construction; only a writer error can land here.
		sys.Reset()
		sys.WriteString(data.Context)
	}

	msgs := make([]Message, 0, 2*len(history)+1)
	for _, turn := range b.recent(history) {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: turn.Question},
			Message{Role: RoleAssistant, Content: turn.Answer},
		)
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: question})

	return Prompt{System: sys.String(), Messages: msgs}
}

func (b *TemplateBuilder) context(chunks []store.ScoredChunk) string {
	if b.maxContextChunks > 0 && len(chunks) > b.maxContextChunks {
		chunks = chunks[:b.maxContextChunks]
	}
	if len(chunks) == 0 {
		return noContext
	}

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

// recent returns the newest turns whose combined token count fits the budget,
// in chronological order.
func (b *TemplateBuilder) recent(history []store.Turn) []store.Turn {
	if b.maxHistoryTokens <= 0 {
		return history
	}

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := b.counter.Count(history[i].Question) + b.counter.Count(history[i].Answer)
		if used+cost > b.maxHistoryTokens {
			break
		}
		used += cost
		start = i
	}
	return slices.Clone(history[start:])
}
