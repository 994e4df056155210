package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.CacheDir != DefaultCacheDir {
		t.Errorf("Expected cache dir %s, got %s", DefaultCacheDir, cfg.CacheDir)
	}
	if cfg.Registry.URL != "" {
		t.Errorf("Expected no registry, got %s", cfg.Registry.URL)
	}
	if cfg.Registry.Timeout != DefaultRegistryTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultRegistryTimeout, cfg.Registry.Timeout)
	}
	if len(cfg.Policy.Paths) != 0 {
		t.Errorf("Expected no policy paths, got %v", cfg.Policy.Paths)
	}
	if cfg.Journal.Path != "" {
		t.Errorf("Expected journal disabled, got %s", cfg.Journal.Path)
	}
	if cfg.Telemetry.ServiceName != "sdkbridge" {
		t.Errorf("Expected service name sdkbridge, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.Logging.Format != "console" {
		t.Errorf("Expected console logging, got %s", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadLambdaDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), LoadOptions{Lambda: true})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Telemetry.Logging.Format != "json" || cfg.Telemetry.Logging.Output != "stdout" {
		t.Errorf("Expected JSON logs on stdout, got %s on %s", cfg.Telemetry.Logging.Format, cfg.Telemetry.Logging.Output)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sdkbridge.yaml")
	content := `cache_dir: /var/cache/sdkbridge
registry:
  url: https://packages.example.com
  timeout: 5s
policy:
  paths:
    - /opt/policies
  builtins:
    - read-only
journal:
  path: /var/lib/sdkbridge/journal.db
  retention: 168h
  events:
    - invocation.failed
    - sdk.error_suppressed
telemetry:
  logging:
    level: debug
    format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(context.Background(), LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.CacheDir != "/var/cache/sdkbridge" {
		t.Errorf("Expected cache dir from file, got %s", cfg.CacheDir)
	}
	if cfg.Registry.URL != "https://packages.example.com" {
		t.Errorf("Expected registry URL from file, got %s", cfg.Registry.URL)
	}
	if cfg.Registry.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Registry.Timeout)
	}
	if !reflect.DeepEqual(cfg.Policy.Paths, []string{"/opt/policies"}) {
		t.Errorf("Unexpected policy paths: %v", cfg.Policy.Paths)
	}
	if !reflect.DeepEqual(cfg.Policy.Builtins, []string{"read-only"}) {
		t.Errorf("Unexpected builtins: %v", cfg.Policy.Builtins)
	}
	if cfg.Journal.Path != "/var/lib/sdkbridge/journal.db" || cfg.Journal.Retention != 168*time.Hour {
		t.Errorf("Unexpected journal config: %+v", cfg.Journal)
	}
	if !reflect.DeepEqual(cfg.Journal.Events, []string{"invocation.failed", "sdk.error_suppressed"}) {
		t.Errorf("Unexpected journal events: %v", cfg.Journal.Events)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", cfg.Telemetry.Logging)
	}
	if cfg.Telemetry.ServiceName != "sdkbridge" {
		t.Errorf("Expected default service name to survive, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("SDKBRIDGE_CACHE_DIR", "/env/cache")
	t.Setenv("SDKBRIDGE_REGISTRY_URL", "http://localhost:9000")
	t.Setenv("SDKBRIDGE_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("SDKBRIDGE_JOURNAL_PATH", "/env/journal.db")

	cfg, err := Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.CacheDir != "/env/cache" {
		t.Errorf("Expected cache dir from env, got %s", cfg.CacheDir)
	}
	if cfg.Registry.URL != "http://localhost:9000" {
		t.Errorf("Expected registry URL from env, got %s", cfg.Registry.URL)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Expected level from env, got %s", cfg.Telemetry.Logging.Level)
	}
	if cfg.Journal.Path != "/env/journal.db" {
		t.Errorf("Expected journal path from env, got %s", cfg.Journal.Path)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
		if err == nil {
			t.Error("Expected error for missing config file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("cache_dir: [unterminated"), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		if _, err := Load(context.Background(), LoadOptions{ConfigFile: path}); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := Load(ctx, LoadOptions{}); err == nil {
			t.Error("Expected error for canceled context")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty cache dir", func(c *Config) { c.CacheDir = "" }, true},
		{"bad registry url", func(c *Config) { c.Registry.URL = "not a url" }, true},
		{"negative timeout", func(c *Config) { c.Registry.Timeout = -time.Second }, true},
		{"negative retention", func(c *Config) { c.Journal.Retention = -time.Hour }, true},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(false)
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
