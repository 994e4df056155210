package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// RequestID is the lifecycle request ID, if applicable.
	RequestID string `json:"request_id,omitempty"`

	// LogicalResourceID is the template resource the event concerns, if applicable.
	LogicalResourceID string `json:"logical_resource_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeInvocationStarted   = "invocation.started"
	EventTypeInvocationSucceeded = "invocation.succeeded"
	EventTypeInvocationFailed    = "invocation.failed"
	EventTypeErrorSuppressed     = "sdk.error_suppressed"
	EventTypePackageInstalled    = "package.installed"
	EventTypePolicyDenied        = "policy.denied"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher delivers events to subscribers synchronously. A nil
// *EventPublisher and a disabled one drop every event.
type EventPublisher struct {
	config      EventsConfig
	subscribers []subscriberEntry
	filters     []EventFilter
	mu          sync.RWMutex
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	ep := &EventPublisher{config: cfg}
	if cfg.Enabled && cfg.MinLevel != "" {
		ep.filters = append(ep.filters, FilterByLevel(cfg.MinLevel))
	}
	return ep, nil
}

// Publish delivers an event to all matching subscribers.
func (ep *EventPublisher) Publish(event Event) {
	if ep == nil || !ep.config.Enabled {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, filter := range ep.filters {
		if !filter(event) {
			return
		}
	}

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Subscribe registers a subscriber with an optional filter.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// LogSubscriber returns a subscriber that writes events to the logger.
func LogSubscriber(logger *Logger) EventSubscriber {
	return func(event Event) {
		l := logger.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"source":     event.Source,
		})
		if event.RequestID != "" {
			l = l.WithField("request_id", event.RequestID)
		}
		if len(event.Data) > 0 {
			l = l.WithField("data", event.Data)
		}

		switch event.Level {
		case EventLevelError:
			l.Error(event.Message)
		case EventLevelWarning:
			l.Warn(event.Message)
		default:
			l.Info(event.Message)
		}
	}
}

// FilterByLevel creates a filter that only allows events at or above the given level.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}
	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows specific event types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}
