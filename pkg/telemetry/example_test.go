package telemetry_test

import (
	"context"
	"errors"

	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	logger := tel.Logger.NewComponentLogger("main")
	ctx := logger.WithContext(context.Background())

	telemetry.FromContext(ctx).Info("Application started")
}

// Example_instrumentedOperation demonstrates tracing one SDK call.
func Example_instrumentedOperation() {
	tel, _ := telemetry.NewTelemetry(telemetry.DefaultConfig())

	_, span := tel.Tracer.StartSDKCallSpan(context.Background(), "@aws-sdk/client-s3", "ListBucketsCommand")
	timer := telemetry.NewTimer()
	err := errors.New("AccessDenied")
	tel.Logger.WithError(err).Warn("SDK call failed")
	telemetry.RecordError(span, err)
	span.End()

	tel.Metrics.RecordSDKCall("@aws-sdk/client-s3", "ListBucketsCommand", timer.Duration())
	tel.Metrics.RecordSDKError("@aws-sdk/client-s3", "ListBucketsCommand", "AccessDenied")
}

// Example_events demonstrates subscribing to events.
func Example_events() {
	events, _ := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
	events.Subscribe(func(event telemetry.Event) {
		_ = event.ID
	}, telemetry.FilterByType(telemetry.EventTypePackageInstalled))

	events.Publish(telemetry.Event{
		Type:    telemetry.EventTypePackageInstalled,
		Source:  "module-loader",
		Message: "installed @aws-sdk/client-s3",
	})
}
