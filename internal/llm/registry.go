package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"extension-hub/internal/kv"
	"extension-hub/internal/settings"
)

// ErrUnsupportedProvider is returned for a provider name with no adapter.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported llm provider: %s", e.Provider)
}

// Registry maps provider names to adapters and resolves the active one from
// the persisted ai_provider key.
type Registry struct {
	adapters map[string]Adapter
	store    kv.Store
	fallback string
	log      *slog.Logger
}

// NewRegistry builds a registry. fallback names the provider used when none
// is stored; it must be one of adapters.
func NewRegistry(store kv.Store, fallback string, log *slog.Logger, adapters ...Adapter) (*Registry, error) {
	r := &Registry{
		adapters: make(map[string]Adapter, len(adapters)),
		store:    store,
		fallback: normalize(fallback),
		log:      log,
	}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	if _, ok := r.adapters[r.fallback]; !ok {
		return nil, ErrUnsupportedProvider{Provider: fallback}
	}
	return r, nil
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[normalize(name)]
	if !ok {
		return nil, ErrUnsupportedProvider{Provider: name}
	}
	return a, nil
}

// Names lists the registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selected returns the name of the active provider. An unknown stored value
// falls back to the default and is logged.
func (r *Registry) Selected(ctx context.Context) string {
	stored, err := kv.GetString(ctx, r.store, settings.KeyAIProvider)
	if err != nil {
		r.log.Warn("failed to read selected provider; using default", "default", r.fallback, "err", err)
		return r.fallback
	}
	if stored == "" {
		return r.fallback
	}
	name := normalize(stored)
	if _, ok := r.adapters[name]; !ok {
		r.log.Warn("stored provider is not registered; using default", "provider", stored, "default", r.fallback)
		return r.fallback
	}
	return name
}

// Select resolves the active adapter. It is called once per request.
func (r *Registry) Select(ctx context.Context) Adapter {
	return r.adapters[r.Selected(ctx)]
}

// SetSelected persists name as the active provider.
func (r *Registry) SetSelected(ctx context.Context, name string) error {
	if _, err := r.Get(name); err != nil {
		return err
	}
	if err := kv.SetString(ctx, r.store, settings.KeyAIProvider, normalize(name)); err != nil {
		return fmt.Errorf("failed to store selected provider: %w", err)
	}
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
