package modules

import (
	"sort"
	"sync"
)

// InstalledPackages records which packages were freshly installed into the
// writable cache during this process lifetime. Entries are only ever added;
// Reset wipes the whole set and exists for test isolation.
type InstalledPackages struct {
	mu       sync.RWMutex
	packages map[string]bool
}

// NewInstalledPackages creates an empty cache.
func NewInstalledPackages() *InstalledPackages {
	return &InstalledPackages{packages: make(map[string]bool)}
}

// MarkInstalled records a successful install.
func (p *InstalledPackages) MarkInstalled(packageName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packages[packageName] = true
}

// IsInstalled reports whether the package was installed this process lifetime.
func (p *InstalledPackages) IsInstalled(packageName string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.packages[packageName]
}

// List returns the installed packages, sorted.
func (p *InstalledPackages) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.packages))
	for name := range p.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset forgets every install.
func (p *InstalledPackages) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packages = make(map[string]bool)
}
