// Package component builds configured components from manifests through
// provider-keyed factories, and dumps live components back to manifests.
package component

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/manifest"
)

// Factory builds a component from its manifest.
type Factory func(ctx context.Context, m *manifest.Manifest) (any, error)

// Registry maps provider names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]entry
}

type entry struct {
	componentType string
	factory       Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]entry)}
}

// Register binds provider to factory. A later registration for the same provider wins.
func (r *Registry) Register(provider, componentType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = entry{componentType: componentType, factory: f}
}

// Providers returns the registered provider names, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Build constructs the component m describes.
// Returns muikit.ErrUnknownProvider for an unregistered provider and
// muikit.ErrInvalidManifest when the component type does not match the registration.
func (r *Registry) Build(ctx context.Context, m *manifest.Manifest) (any, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	e, ok := r.factories[m.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", muikit.ErrUnknownProvider, m.Provider)
	}
	if e.componentType != m.ComponentType {
		return nil, fmt.Errorf("%w: %s is a %s, manifest says %s",
			muikit.ErrInvalidManifest, m.Provider, e.componentType, m.ComponentType)
	}
	return e.factory(ctx, m)
}

// BuildAs builds m and asserts the result to T.
func BuildAs[T any](ctx context.Context, r *Registry, m *manifest.Manifest) (T, error) {
	var zero T
	c, err := r.Build(ctx, m)
	if err != nil {
		return zero, err
	}
	t, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s built %T", muikit.ErrInvalidManifest, m.Provider, c)
	}
	return t, nil
}

// Dump returns the manifest of a live component from its provider and current config.
func Dump(provider, componentType string, cfg any) (*manifest.Manifest, error) {
	return manifest.New(provider, componentType, cfg)
}

// LoadFS parses every .yaml/.yml manifest under root in fsys, keyed by file base name.
func LoadFS(fsys fs.FS, root string) (map[string]*manifest.Manifest, error) {
	out := make(map[string]*manifest.Manifest)
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || (!strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml")) {
			return nil
		}
		m, err := manifest.ParseFS(fsys, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(strings.TrimSuffix(d.Name(), ".yaml"), ".yml")
		out[name] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
