package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

const recordTimeout = 5 * time.Second

// EventRecorder returns a telemetry subscriber that appends every event to
// the journal. Write failures are logged and dropped.
func EventRecorder(store Store, logger *telemetry.Logger) telemetry.EventSubscriber {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	logger = logger.NewComponentLogger("journal")

	return func(event telemetry.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := store.AppendEvent(ctx, FromTelemetryEvent(event)); err != nil {
			logger.WithError(err).WithField("event_type", event.Type).Warn("Failed to record event")
		}
	}
}

// FromTelemetryEvent converts a telemetry event to a journal event.
func FromTelemetryEvent(event telemetry.Event) *Event {
	out := &Event{
		EventID:   event.ID,
		Type:      event.Type,
		Source:    event.Source,
		Level:     event.Level,
		Message:   event.Message,
		Timestamp: event.Timestamp,
	}
	if event.RequestID != "" {
		requestID := event.RequestID
		out.RequestID = &requestID
	}
	if len(event.Data) > 0 {
		if doc, err := json.Marshal(event.Data); err == nil {
			details := string(doc)
			out.Details = &details
		}
	}
	return out
}
