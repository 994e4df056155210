package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for sdkbridge. A nil *Metrics and a
// disabled one are both valid and record nothing.
type Metrics struct {
	config MetricsConfig

	// Invocation metrics
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec

	// SDK call metrics
	sdkCalls          *prometheus.CounterVec
	sdkCallDuration   *prometheus.HistogramVec
	sdkErrors         *prometheus.CounterVec
	suppressedErrors  *prometheus.CounterVec
	credentialAssumes *prometheus.CounterVec

	// Module metrics
	packageInstalls *prometheus.CounterVec
	moduleLoads     *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of lifecycle requests handled",
			},
			[]string{"request_type", "status"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of lifecycle request handling in seconds",
				Buckets:   buckets,
			},
			[]string{"request_type"},
		),

		sdkCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sdk_calls_total",
				Help:      "Total number of SDK commands sent",
			},
			[]string{"package", "command"},
		),
		sdkCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sdk_call_duration_seconds",
				Help:      "Duration of SDK commands in seconds",
				Buckets:   buckets,
			},
			[]string{"package", "command"},
		),
		sdkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sdk_errors_total",
				Help:      "Total number of failed SDK commands",
			},
			[]string{"package", "command", "code"},
		),
		suppressedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suppressed_errors_total",
				Help:      "Total number of SDK errors suppressed by ignoreErrorCodesMatching",
			},
			[]string{"package", "command"},
		),
		credentialAssumes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assume_role_total",
				Help:      "Total number of assumed-role credential providers built",
			},
			[]string{"status"},
		),

		packageInstalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "package_installs_total",
				Help:      "Total number of client package install attempts",
			},
			[]string{"status"},
		),
		moduleLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_loads_total",
				Help:      "Total number of client module loads by source",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		m.invocations,
		m.invocationDuration,
		m.sdkCalls,
		m.sdkCallDuration,
		m.sdkErrors,
		m.suppressedErrors,
		m.credentialAssumes,
		m.packageInstalls,
		m.moduleLoads,
	)

	return m, nil
}

// Registry returns the underlying registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Invocation Metrics

// RecordInvocation records a handled lifecycle request.
func (m *Metrics) RecordInvocation(requestType, status string, duration time.Duration) {
	if m == nil || m.invocations == nil {
		return
	}
	m.invocations.WithLabelValues(requestType, status).Inc()
	m.invocationDuration.WithLabelValues(requestType).Observe(duration.Seconds())
}

// SDK Call Metrics

// RecordSDKCall records a sent SDK command with its duration.
func (m *Metrics) RecordSDKCall(pkg, command string, duration time.Duration) {
	if m == nil || m.sdkCalls == nil {
		return
	}
	m.sdkCalls.WithLabelValues(pkg, command).Inc()
	m.sdkCallDuration.WithLabelValues(pkg, command).Observe(duration.Seconds())
}

// RecordSDKError records a failed SDK command.
func (m *Metrics) RecordSDKError(pkg, command, code string) {
	if m == nil || m.sdkErrors == nil {
		return
	}
	m.sdkErrors.WithLabelValues(pkg, command, code).Inc()
}

// RecordSuppressedError records an SDK error swallowed by the error policy.
func (m *Metrics) RecordSuppressedError(pkg, command string) {
	if m == nil || m.suppressedErrors == nil {
		return
	}
	m.suppressedErrors.WithLabelValues(pkg, command).Inc()
}

// RecordAssumeRole records building an assumed-role credential provider.
func (m *Metrics) RecordAssumeRole(status string) {
	if m == nil || m.credentialAssumes == nil {
		return
	}
	m.credentialAssumes.WithLabelValues(status).Inc()
}

// Module Metrics

// RecordPackageInstall records a package install attempt.
func (m *Metrics) RecordPackageInstall(status string) {
	if m == nil || m.packageInstalls == nil {
		return
	}
	m.packageInstalls.WithLabelValues(status).Inc()
}

// RecordModuleLoad records where a client module was loaded from.
func (m *Metrics) RecordModuleLoad(source string) {
	if m == nil || m.moduleLoads == nil {
		return
	}
	m.moduleLoads.WithLabelValues(source).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Path returns the HTTP path metrics are served on.
func (m *Metrics) Path() string {
	if m == nil || m.config.Path == "" {
		return "/metrics"
	}
	return m.config.Path
}
