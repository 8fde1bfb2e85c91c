// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package provider

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
	"github.com/akcio-dev/akcio/pkg/health"
)

// Registry manages provider registration, lookup, and routing with failover.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	defaultRef string   // "provider/model" format
	failover   []string // ordered list of "provider/model" refs
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry, replacing any with the same name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, akcioerr.New(akcioerr.CodeProviderNotFound, "provider not found: "+name, akcioerr.FieldProvider(name))
	}
	return p, nil
}

// Names lists registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefault sets the "provider/model" reference used when a request names
// no model. The provider must be registered.
func (r *Registry) SetDefault(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRefLocked(ref); err != nil {
		return err
	}
	r.defaultRef = ref
	return nil
}

// DefaultRef returns the configured default reference.
func (r *Registry) DefaultRef() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultRef
}

// SetFailover sets the ordered failover chain of "provider/model" refs.
func (r *Registry) SetFailover(chain []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range chain {
		if err := r.checkRefLocked(ref); err != nil {
			return err
		}
	}
	r.failover = slices.Clone(chain)
	return nil
}

// MaxAttempts returns 1 (primary) + len(failover chain).
func (r *Registry) MaxAttempts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return 1 + len(r.failover)
}

// Route selects an available provider for ref, walking the failover chain
// when the primary is unavailable. An empty ref (or "default") selects the
// default. Providers named in exclude are skipped.
func (r *Registry) Route(ctx context.Context, ref string, exclude []string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, err := r.resolveRefLocked(ref)
	if err != nil {
		return nil, "", err
	}

	candidates := append([]string{ref}, r.failover...)
	for _, candidate := range candidates {
		name, _ := parseRef(candidate)
		if slices.Contains(exclude, name) {
			continue
		}
		if p, model, err := r.tryRefLocked(ctx, candidate); err == nil {
			return p, model, nil
		}
	}

	return nil, "", akcioerr.New(akcioerr.CodeProviderAllUnavailable,
		"all providers unavailable: no healthy provider found")
}

// Health reports the health snapshot of every registered provider. Providers
// that do not track health report their Available state only.
func (r *Registry) Health(ctx context.Context) []health.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]health.Provider, 0, len(r.providers))
	for name, p := range r.providers {
		entry := health.Provider{Name: name}
		if hr, ok := p.(HealthReporter); ok {
			entry.Metrics = hr.HealthMetrics()
		} else {
			entry.Metrics.Available = p.Available(ctx)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return akcioerr.Join(errs...)
	}
	return nil
}

func (r *Registry) checkRefLocked(ref string) error {
	name, model := parseRef(ref)
	if model == "" {
		return akcioerr.Errorf(akcioerr.CodeProviderInvalidModelRef, "model %q must use provider/model format", ref)
	}
	if _, ok := r.providers[name]; !ok {
		return akcioerr.New(akcioerr.CodeProviderNotFound, "provider not registered: "+name, akcioerr.FieldProvider(name))
	}
	return nil
}

func (r *Registry) resolveRefLocked(ref string) (string, error) {
	if ref != "" && ref != "default" {
		if !strings.Contains(ref, "/") {
			return "", akcioerr.Errorf(akcioerr.CodeProviderInvalidModelRef, "model name %q must use provider/model format", ref)
		}
		return ref, nil
	}
	if r.defaultRef == "" {
		return "", akcioerr.New(akcioerr.CodeProviderNoDefault, "no default provider configured")
	}
	return r.defaultRef, nil
}

func (r *Registry) tryRefLocked(ctx context.Context, ref string) (Provider, string, error) {
	name, model := parseRef(ref)

	p, ok := r.providers[name]
	if !ok {
		return nil, "", akcioerr.New(akcioerr.CodeProviderNotFound, "provider not found: "+name, akcioerr.FieldProvider(name))
	}
	if !p.Available(ctx) {
		return nil, "", akcioerr.New(akcioerr.CodeProviderUpstreamFailure, "provider unavailable: "+name, akcioerr.FieldProvider(name))
	}
	return p, model, nil
}

// parseRef splits a "provider/model" reference on the first "/".
func parseRef(ref string) (providerName, model string) {
	name, model, _ := strings.Cut(ref, "/")
	return name, model
}
