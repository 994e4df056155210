package modules

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

// strategy is one way of resolving a package to a module.
type strategy struct {
	name    string
	resolve func(ctx context.Context, packageName string) (*Module, error)
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// CacheDir is the writable cache root packages are installed under.
	CacheDir string

	// Installer performs fresh installs. Nil disables installing.
	Installer Installer

	// Installed is the process-wide install record. Nil creates a private one.
	Installed *InstalledPackages

	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Events  *telemetry.EventPublisher
}

// Loader resolves client modules for package names, installing the latest
// version into the cache on request.
type Loader struct {
	registry  *Registry
	manifests *ManifestLoader
	installer Installer
	installed *InstalledPackages
	cacheDir  string
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
	events    *telemetry.EventPublisher
}

// NewLoader creates a module loader over the registry's bundled bindings.
func NewLoader(registry *Registry, cfg LoaderConfig) *Loader {
	if cfg.Installed == nil {
		cfg.Installed = NewInstalledPackages()
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NopLogger()
	}

	return &Loader{
		registry:  registry,
		manifests: NewManifestLoader(cfg.CacheDir),
		installer: cfg.Installer,
		installed: cfg.Installed,
		cacheDir:  cfg.CacheDir,
		logger:    cfg.Logger.NewComponentLogger("module-loader"),
		metrics:   cfg.Metrics,
		events:    cfg.Events,
	}
}

// Load resolves the module for a package. Strategies are tried in order and
// the first success wins:
//
//   - installLatest and not yet installed: install then load from the cache,
//     falling back to the bundled module
//   - already installed: load from the cache
//   - otherwise: the bundled module
func (l *Loader) Load(ctx context.Context, packageName string, installLatest bool) (*Module, error) {
	logger := l.logger.WithField("package", packageName)

	var errs []error
	for _, s := range l.plan(packageName, installLatest) {
		m, err := s.resolve(ctx, packageName)
		if err == nil {
			logger.WithFields(map[string]interface{}{
				"strategy": s.name,
				"version":  m.Version,
			}).Debug("Module loaded")
			l.metrics.RecordModuleLoad(string(m.Source))
			return m, nil
		}

		logger.WithError(err).WithField("strategy", s.name).Warn("Module resolution strategy failed")
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}

	l.metrics.RecordModuleLoad("not_found")
	return nil, engine.NewPackageNotFoundError(packageName, errors.Join(errs...))
}

// plan returns the resolution strategies for a load request.
func (l *Loader) plan(packageName string, installLatest bool) []strategy {
	bundled := strategy{name: "bundled", resolve: l.registry.Get}
	cached := strategy{name: "cache", resolve: l.loadFromCache}

	switch {
	case installLatest && !l.installed.IsInstalled(packageName):
		return []strategy{{name: "install", resolve: l.installThenLoad}, bundled}
	case l.installed.IsInstalled(packageName):
		return []strategy{cached}
	default:
		return []strategy{bundled}
	}
}

// installThenLoad installs the latest package and loads it from the cache.
func (l *Loader) installThenLoad(ctx context.Context, packageName string) (*Module, error) {
	if err := l.install(ctx, packageName); err != nil {
		return nil, err
	}
	return l.loadFromCache(ctx, packageName)
}

func (l *Loader) install(ctx context.Context, packageName string) error {
	if l.installer == nil {
		l.metrics.RecordPackageInstall("skipped")
		return engine.NewPermanentError("Failed to install latest client package", ErrNoRegistry).
			WithCode(engine.ErrCodeInstallFailed).
			WithPackage(packageName)
	}

	l.logger.WithField("package", packageName).Info("Installing latest client package")
	if err := l.installer.Install(ctx, packageName, l.cacheDir); err != nil {
		l.metrics.RecordPackageInstall("failed")
		return engine.NewTransientError("Failed to install latest client package", err).
			WithCode(engine.ErrCodeInstallFailed).
			WithPackage(packageName)
	}

	l.installed.MarkInstalled(packageName)
	l.metrics.RecordPackageInstall("installed")
	l.events.Publish(telemetry.Event{
		Type:    telemetry.EventTypePackageInstalled,
		Source:  "module-loader",
		Message: fmt.Sprintf("installed %s", packageName),
		Data:    map[string]interface{}{"package": packageName},
	})
	return nil
}

// loadFromCache loads a package installed into the writable cache.
func (l *Loader) loadFromCache(ctx context.Context, packageName string) (*Module, error) {
	manifest, err := l.manifests.LoadPackage(packageName)
	if err != nil {
		return nil, err
	}
	return l.registry.Bind(ctx, manifest)
}
