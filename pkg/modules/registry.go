package modules

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// BundledVersion is the version reported by compiled-in modules.
const BundledVersion = "bundled"

// Factory builds the module for a package binding.
type Factory func(ctx context.Context) (*Module, error)

// Registry holds the compiled-in module bindings and memoises built modules.
type Registry struct {
	// mu protects the registry state.
	mu sync.RWMutex

	// factories maps binding name (a package name) to its module factory.
	factories map[string]Factory

	// modules maps module key (name@version) to the built module.
	modules map[string]*Module
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		modules:   make(map[string]*Module),
	}
}

// Register adds a compiled-in binding for a package.
func (r *Registry) Register(packageName string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[packageName]; exists {
		return fmt.Errorf("package %s already registered", packageName)
	}
	r.factories[packageName] = factory
	return nil
}

// Has reports whether a binding exists for the package.
func (r *Registry) Has(packageName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[packageName]
	return ok
}

// Get returns the bundled module for a package.
func (r *Registry) Get(ctx context.Context, packageName string) (*Module, error) {
	return r.build(ctx, packageName, packageName, BundledVersion, engine.SourceBundled)
}

// Bind returns the module described by an installed manifest: the manifest's
// binding stamped with the manifest's name and version.
func (r *Registry) Bind(ctx context.Context, manifest *Manifest) (*Module, error) {
	return r.build(ctx, manifest.Name, manifest.BindingName(), manifest.Version, engine.SourceCache)
}

func (r *Registry) build(ctx context.Context, packageName, binding, version string, source engine.ModuleSource) (*Module, error) {
	key := buildModuleKey(packageName, version)

	r.mu.RLock()
	if m, exists := r.modules[key]; exists {
		r.mu.RUnlock()
		return m, nil
	}
	factory, exists := r.factories[binding]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no binding for package %s", binding)
	}

	base, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build module %s: %w", key, err)
	}
	m := base.Stamp(version, source)
	m.Package = packageName

	r.mu.Lock()
	defer r.mu.Unlock()
	// A concurrent build may have won; keep the first one.
	if existing, ok := r.modules[key]; ok {
		return existing, nil
	}
	r.modules[key] = m
	return m, nil
}

// List lists all registered package bindings, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildModuleKey builds a unique key for a module.
func buildModuleKey(name, version string) string {
	return name + "@" + version
}
