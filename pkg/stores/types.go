package stores

import (
	"context"
	"time"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// Invocation is one acknowledged lifecycle request.
type Invocation struct {
	ID                 int64         `json:"id"`
	RequestID          string        `json:"request_id"`
	RequestType        string        `json:"request_type"`
	StackID            string        `json:"stack_id,omitempty"`
	LogicalResourceID  string        `json:"logical_resource_id"`
	PhysicalResourceID string        `json:"physical_resource_id"`
	Package            string        `json:"package,omitempty"`
	Action             string        `json:"action,omitempty"`
	Status             engine.Status `json:"status"`
	Reason             string        `json:"reason"`
	ErrorCode          string        `json:"error_code,omitempty"`
	Data               string        `json:"data"` // JSON blob
	Duration           time.Duration `json:"duration"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Event is an append-only telemetry event.
type Event struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	RequestID *string   `json:"request_id,omitempty"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Details   *string   `json:"details,omitempty"` // JSON blob
	Timestamp time.Time `json:"timestamp"`
}

// InvocationFilter narrows ListInvocations. Zero fields match everything.
type InvocationFilter struct {
	RequestID         string
	LogicalResourceID string
	Status            engine.Status
	Limit             int
	Offset            int
}

// Store defines the interface for the invocation journal.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Invocation operations
	RecordInvocation(ctx context.Context, inv *Invocation) error
	GetInvocation(ctx context.Context, id int64) (*Invocation, error)
	ListInvocations(ctx context.Context, filter InvocationFilter) ([]*Invocation, error)
	PruneInvocations(ctx context.Context, before time.Time) (int64, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, requestID *string, level *string, limit, offset int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
