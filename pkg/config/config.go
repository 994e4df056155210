// Package config loads sdkbridge configuration from defaults, an optional
// YAML file and SDKBRIDGE_* environment variables, in increasing precedence.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

const (
	// EnvPrefix prefixes every configuration environment variable.
	EnvPrefix = "SDKBRIDGE"

	// DefaultCacheDir is the writable directory packages are installed under.
	DefaultCacheDir = "/tmp"

	// DefaultRegistryTimeout bounds a single registry download.
	DefaultRegistryTimeout = 30 * time.Second
)

// Config is the complete sdkbridge configuration.
type Config struct {
	// CacheDir is where freshly installed packages are written.
	CacheDir string `mapstructure:"cache_dir" validate:"required"`

	// Registry configures the package registry used by installs.
	Registry RegistryConfig `mapstructure:"registry"`

	// Policy configures the call policy guard.
	Policy PolicyConfig `mapstructure:"policy"`

	// Journal configures the invocation journal.
	Journal JournalConfig `mapstructure:"journal"`

	// Telemetry configures logging, tracing, metrics and events.
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// RegistryConfig configures the package registry.
type RegistryConfig struct {
	// URL is the registry base URL. Empty disables installs.
	URL string `mapstructure:"url" validate:"omitempty,url"`

	// Timeout bounds a single download.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// PolicyConfig configures the call policy guard.
type PolicyConfig struct {
	// Paths are .rego/.json files or directories to load.
	Paths []string `mapstructure:"paths"`

	// Builtins names built-in policies to enable.
	Builtins []string `mapstructure:"builtins"`
}

// JournalConfig configures the SQLite invocation journal.
type JournalConfig struct {
	// Path is the database file. Empty disables the journal.
	Path string `mapstructure:"path"`

	// Retention prunes entries older than this on open. Zero keeps everything.
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`

	// Events lists the telemetry event types to journal. Empty journals all.
	Events []string `mapstructure:"events"`
}

// LoadOptions controls Load.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file. Empty means no file.
	ConfigFile string

	// Lambda selects the Lambda telemetry defaults.
	Lambda bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig(lambda bool) *Config {
	tel := telemetry.DefaultConfig()
	if lambda {
		tel = telemetry.LambdaConfig()
	}
	return &Config{
		CacheDir: DefaultCacheDir,
		Registry: RegistryConfig{
			Timeout: DefaultRegistryTimeout,
		},
		Policy: PolicyConfig{
			Paths:    []string{},
			Builtins: []string{},
		},
		Telemetry: *tel,
	}
}

// Load builds the configuration. A missing explicit config file is an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig(opts.Lambda))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("config file not found: %s: %w", opts.ConfigFile, err)
		}
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return nil
}

// setDefaults registers every key so environment variables bind on Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("registry.url", d.Registry.URL)
	v.SetDefault("registry.timeout", d.Registry.Timeout)
	v.SetDefault("policy.paths", d.Policy.Paths)
	v.SetDefault("policy.builtins", d.Policy.Builtins)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("journal.retention", d.Journal.Retention)
	v.SetDefault("journal.events", d.Journal.Events)

	t := d.Telemetry
	v.SetDefault("telemetry.service_name", t.ServiceName)
	v.SetDefault("telemetry.service_version", t.ServiceVersion)
	v.SetDefault("telemetry.environment", t.Environment)
	v.SetDefault("telemetry.logging.level", t.Logging.Level)
	v.SetDefault("telemetry.logging.format", t.Logging.Format)
	v.SetDefault("telemetry.logging.output", t.Logging.Output)
	v.SetDefault("telemetry.logging.enable_caller", t.Logging.EnableCaller)
	v.SetDefault("telemetry.logging.time_format", t.Logging.TimeFormat)
	v.SetDefault("telemetry.tracing.enabled", t.Tracing.Enabled)
	v.SetDefault("telemetry.tracing.exporter", t.Tracing.Exporter)
	v.SetDefault("telemetry.tracing.endpoint", t.Tracing.Endpoint)
	v.SetDefault("telemetry.tracing.sampling_rate", t.Tracing.SamplingRate)
	v.SetDefault("telemetry.tracing.export_timeout", t.Tracing.ExportTimeout)
	v.SetDefault("telemetry.tracing.headers", t.Tracing.Headers)
	v.SetDefault("telemetry.tracing.insecure", t.Tracing.Insecure)
	v.SetDefault("telemetry.metrics.enabled", t.Metrics.Enabled)
	v.SetDefault("telemetry.metrics.path", t.Metrics.Path)
	v.SetDefault("telemetry.metrics.namespace", t.Metrics.Namespace)
	v.SetDefault("telemetry.metrics.histogram_buckets", t.Metrics.DefaultHistogramBuckets)
	v.SetDefault("telemetry.events.enabled", t.Events.Enabled)
	v.SetDefault("telemetry.events.min_level", t.Events.MinLevel)
}
