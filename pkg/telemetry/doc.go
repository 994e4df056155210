// Package telemetry provides observability instrumentation for sdkbridge.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into one
// Telemetry value that is built once at startup and passed to components.
//
// # Usage
//
//	cfg := telemetry.LambdaConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("handler")
//	logger = logger.WithRequest(event.RequestID, string(event.RequestType), event.LogicalResourceID)
//	logger.WithError(err).Error("SDK call failed")
//
// # Metrics
//
// Metrics are served by the serve command on /metrics:
//
//	sdkbridge_invocations_total{request_type,status}
//	sdkbridge_invocation_duration_seconds{request_type}
//	sdkbridge_sdk_calls_total{package,command}
//	sdkbridge_sdk_call_duration_seconds{package,command}
//	sdkbridge_sdk_errors_total{package,command,code}
//	sdkbridge_suppressed_errors_total{package,command}
//	sdkbridge_assume_role_total{status}
//	sdkbridge_package_installs_total{status}
//	sdkbridge_module_loads_total{source}
//
// A nil *Metrics records nothing, so components accept it as optional.
//
// # Tracing
//
// Spans are exported synchronously: the Lambda sandbox may be frozen as soon
// as the handler returns.
//
// # Events
//
// Events are delivered synchronously to subscribers. NewTelemetry attaches a
// subscriber that logs every event.
package telemetry
