package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/openfroyo/sdkbridge/pkg/config"
	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/handler"
	"github.com/openfroyo/sdkbridge/pkg/modules"
	"github.com/openfroyo/sdkbridge/pkg/modules/awsv2"
	"github.com/openfroyo/sdkbridge/pkg/policy"
	"github.com/openfroyo/sdkbridge/pkg/stores"
	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

// app holds the process-wide components shared by every invocation.
type app struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	registry *modules.Registry
	loader   *modules.Loader
	guard    *policy.Engine
	journal  *stores.SQLiteStore
}

// newApp loads configuration and wires telemetry, the module loader and the
// policy guard.
func newApp(ctx context.Context, lambda bool, version string) (*app, error) {
	cfg, err := config.Load(ctx, config.LoadOptions{ConfigFile: configPath, Lambda: lambda})
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if cfg.Telemetry.ServiceVersion == "dev" {
		cfg.Telemetry.ServiceVersion = version
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	registry := modules.NewRegistry()
	if err := awsv2.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register bundled clients: %w", err)
	}

	var installer modules.Installer
	if cfg.Registry.URL != "" {
		installer = modules.NewHTTPInstaller(cfg.Registry.URL, cfg.Registry.Timeout)
	}

	loader := modules.NewLoader(registry, modules.LoaderConfig{
		CacheDir:  cfg.CacheDir,
		Installer: installer,
		Installed: modules.NewInstalledPackages(),
		Logger:    tel.Logger,
		Metrics:   tel.Metrics,
		Events:    tel.Events,
	})

	guard, err := policy.NewEngine(tel.Logger.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if err := guard.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
		return nil, err
	}
	for _, name := range cfg.Policy.Builtins {
		if err := guard.EnablePolicy(name); err != nil {
			return nil, fmt.Errorf("failed to enable built-in policy: %w", err)
		}
	}

	journal, err := openJournal(ctx, cfg.Journal, tel)
	if err != nil {
		return nil, err
	}

	tel.Logger.WithFields(map[string]interface{}{
		"journal":   cfg.Journal.Path,
		"cache_dir": cfg.CacheDir,
		"registry":  cfg.Registry.URL,
		"bundled":   len(registry.List()),
		"policies":  len(cfg.Policy.Paths),
	}).Debug("sdkbridge initialized")

	return &app{
		cfg:      cfg,
		tel:      tel,
		registry: registry,
		loader:   loader,
		guard:    guard,
		journal:  journal,
	}, nil
}

// openJournal opens the invocation journal, prunes it to the retention
// window and records telemetry events of the configured types into it. An
// empty path disables it.
func openJournal(ctx context.Context, cfg config.JournalConfig, tel *telemetry.Telemetry) (*stores.SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	journal, err := stores.Open(ctx, stores.Config{Path: cfg.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if cfg.Retention > 0 {
		removed, err := journal.PruneInvocations(ctx, time.Now().Add(-cfg.Retention))
		if err != nil {
			tel.Logger.WithError(err).Warn("Failed to prune journal")
		} else if removed > 0 {
			tel.Logger.WithField("removed", removed).Debug("Pruned journal")
		}
	}

	var filter telemetry.EventFilter
	if len(cfg.Events) > 0 {
		filter = telemetry.FilterByType(cfg.Events...)
	}
	tel.Events.Subscribe(stores.EventRecorder(journal, tel.Logger), filter)
	return journal, nil
}

// handler builds an event handler delivering through responder.
func (a *app) handler(responder engine.Responder) (*handler.Handler, error) {
	cfg := handler.Config{
		Loader:    a.loader,
		Responder: responder,
		Guard:     a.guard,
		Telemetry: a.tel,
	}
	if a.journal != nil {
		cfg.Journal = a.journal
	}
	return handler.New(cfg)
}

// close shuts down telemetry and closes the journal.
func (a *app) close(ctx context.Context) {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.tel.Logger.WithError(err).Warn("Failed to close journal")
		}
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		a.tel.Logger.WithError(err).Warn("Failed to shut down telemetry")
	}
}
