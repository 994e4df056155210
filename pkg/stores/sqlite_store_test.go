package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

// setupTestStore creates a migrated SQLite store in a temporary directory
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "journal.db"),
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewSQLiteStore(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("Expected error for empty path")
	}

	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("NewSQLiteStore() returned error: %v", err)
	}
	if store.cfg.MaxOpenConns != 1 {
		t.Errorf("Expected a single connection for :memory:, got %d", store.cfg.MaxOpenConns)
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	// Migrating twice is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestMigrateUninitialized(t *testing.T) {
	store, _ := NewSQLiteStore(Config{Path: ":memory:"})
	if err := store.Migrate(context.Background()); err == nil {
		t.Error("Expected error migrating an uninitialized store")
	}
}

// TestStoreMigrations tests that the journal tables exist
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"invocations", "events"} {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestInvocationRecordAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created := time.UnixMilli(time.Now().UnixMilli())
	inv := &Invocation{
		RequestID:          "req-1",
		RequestType:        "Create",
		LogicalResourceID:  "MyResource",
		PhysicalResourceID: "phys-1",
		Package:            "@aws-sdk/client-s3",
		Action:             "listBuckets",
		Status:             engine.StatusSuccess,
		Reason:             "OK",
		Data:               `{"Buckets.0.Name":"a"}`,
		Duration:           1500 * time.Millisecond,
		CreatedAt:          created,
	}
	if err := store.RecordInvocation(ctx, inv); err != nil {
		t.Fatalf("RecordInvocation() returned error: %v", err)
	}
	if inv.ID == 0 {
		t.Fatal("Expected ID to be set")
	}

	got, err := store.GetInvocation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvocation() returned error: %v", err)
	}
	if got.RequestID != "req-1" || got.Package != "@aws-sdk/client-s3" || got.Action != "listBuckets" {
		t.Errorf("Unexpected invocation: %+v", got)
	}
	if got.Status != engine.StatusSuccess {
		t.Errorf("Expected status SUCCESS, got %s", got.Status)
	}
	if got.Data != `{"Buckets.0.Name":"a"}` {
		t.Errorf("Expected data to round-trip, got %s", got.Data)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("Expected duration 1.5s, got %v", got.Duration)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
	}

	_, err = store.GetInvocation(ctx, 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRecordInvocationDefaults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	inv := &Invocation{
		RequestID:          "req-1",
		RequestType:        "Delete",
		LogicalResourceID:  "Res",
		PhysicalResourceID: "p",
		Status:             engine.StatusFailed,
		Reason:             "Access Denied",
	}
	if err := store.RecordInvocation(ctx, inv); err != nil {
		t.Fatalf("RecordInvocation() returned error: %v", err)
	}
	if inv.Data != "{}" {
		t.Errorf("Expected empty JSON data, got %q", inv.Data)
	}
	if inv.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	bad := &Invocation{RequestID: "r", RequestType: "Create", Status: "MAYBE", Reason: "x"}
	if err := store.RecordInvocation(ctx, bad); err == nil {
		t.Error("Expected error for invalid status")
	}
}

func TestListInvocations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	records := []struct {
		requestID string
		logical   string
		status    engine.Status
	}{
		{"req-1", "A", engine.StatusSuccess},
		{"req-2", "A", engine.StatusFailed},
		{"req-3", "B", engine.StatusSuccess},
		{"req-4", "B", engine.StatusFailed},
	}
	for i, r := range records {
		err := store.RecordInvocation(ctx, &Invocation{
			RequestID:          r.requestID,
			RequestType:        "Create",
			LogicalResourceID:  r.logical,
			PhysicalResourceID: r.logical,
			Status:             r.status,
			Reason:             "x",
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordInvocation() returned error: %v", err)
		}
	}

	tests := []struct {
		name     string
		filter   InvocationFilter
		expected []string
	}{
		{
			name:     "all newest first",
			filter:   InvocationFilter{},
			expected: []string{"req-4", "req-3", "req-2", "req-1"},
		},
		{
			name:     "by status",
			filter:   InvocationFilter{Status: engine.StatusFailed},
			expected: []string{"req-4", "req-2"},
		},
		{
			name:     "by logical id",
			filter:   InvocationFilter{LogicalResourceID: "A"},
			expected: []string{"req-2", "req-1"},
		},
		{
			name:     "by request id",
			filter:   InvocationFilter{RequestID: "req-3"},
			expected: []string{"req-3"},
		},
		{
			name:     "paged",
			filter:   InvocationFilter{Limit: 2, Offset: 1},
			expected: []string{"req-3", "req-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListInvocations(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListInvocations() returned error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d invocations, got %d", len(tt.expected), len(got))
			}
			for i, inv := range got {
				if inv.RequestID != tt.expected[i] {
					t.Errorf("Expected %s at %d, got %s", tt.expected[i], i, inv.RequestID)
				}
			}
		})
	}
}

func TestPruneInvocations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for i, age := range []time.Duration{48 * time.Hour, 2 * time.Hour, time.Minute} {
		err := store.RecordInvocation(ctx, &Invocation{
			RequestID:          string(rune('a' + i)),
			RequestType:        "Create",
			LogicalResourceID:  "R",
			PhysicalResourceID: "R",
			Status:             engine.StatusSuccess,
			Reason:             "OK",
			CreatedAt:          now.Add(-age),
		})
		if err != nil {
			t.Fatalf("RecordInvocation() returned error: %v", err)
		}
	}
	if err := store.AppendEvent(ctx, &Event{EventID: "old", Type: "t", Level: "info", Message: "m", Timestamp: now.Add(-48 * time.Hour)}); err != nil {
		t.Fatalf("AppendEvent() returned error: %v", err)
	}

	removed, err := store.PruneInvocations(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneInvocations() returned error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 invocation pruned, got %d", removed)
	}

	remaining, _ := store.ListInvocations(ctx, InvocationFilter{})
	if len(remaining) != 2 {
		t.Errorf("Expected 2 invocations remaining, got %d", len(remaining))
	}
	events, _ := store.ListEvents(ctx, nil, nil, 0, 0)
	if len(events) != 0 {
		t.Errorf("Expected old events pruned, got %d", len(events))
	}
}

func TestEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	req1 := "req-1"
	details := `{"code":"NoSuchBucket"}`
	events := []*Event{
		{EventID: "e1", Type: telemetry.EventTypeInvocationStarted, Source: "handler", RequestID: &req1, Level: "info", Message: "started"},
		{EventID: "e2", Type: telemetry.EventTypeErrorSuppressed, Source: "handler", RequestID: &req1, Level: "warning", Message: "suppressed", Details: &details},
		{EventID: "e3", Type: telemetry.EventTypePackageInstalled, Source: "module-loader", Level: "info", Message: "installed"},
	}
	for i, e := range events {
		e.Timestamp = time.Now().Add(time.Duration(i) * time.Second)
		if err := store.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent() returned error: %v", err)
		}
		if e.ID == 0 {
			t.Error("Expected event ID to be set")
		}
	}

	all, err := store.ListEvents(ctx, nil, nil, 10, 0)
	if err != nil {
		t.Fatalf("ListEvents() returned error: %v", err)
	}
	if len(all) != 3 || all[0].EventID != "e3" {
		t.Errorf("Expected 3 events newest first, got %d", len(all))
	}

	byRequest, _ := store.ListEvents(ctx, &req1, nil, 10, 0)
	if len(byRequest) != 2 {
		t.Errorf("Expected 2 events for req-1, got %d", len(byRequest))
	}

	warning := "warning"
	byLevel, _ := store.ListEvents(ctx, nil, &warning, 10, 0)
	if len(byLevel) != 1 || byLevel[0].Details == nil || *byLevel[0].Details != details {
		t.Errorf("Expected the suppressed event with details, got %+v", byLevel)
	}

	// Event IDs are unique.
	if err := store.AppendEvent(ctx, &Event{EventID: "e1", Type: "t", Level: "info", Message: "dup"}); err == nil {
		t.Error("Expected error for duplicate event ID")
	}
}

func TestEventRecorder(t *testing.T) {
	store := setupTestStore(t)

	publisher, err := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
	if err != nil {
		t.Fatalf("NewEventPublisher() returned error: %v", err)
	}
	publisher.Subscribe(EventRecorder(store, nil), nil)

	publisher.Publish(telemetry.Event{
		Type:      telemetry.EventTypePolicyDenied,
		Source:    "handler",
		RequestID: "req-9",
		Level:     telemetry.EventLevelWarning,
		Message:   "denied",
		Data:      map[string]interface{}{"action": "deleteBucket"},
	})

	events, err := store.ListEvents(context.Background(), nil, nil, 10, 0)
	if err != nil {
		t.Fatalf("ListEvents() returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 recorded event, got %d", len(events))
	}
	e := events[0]
	if e.EventID == "" || e.Type != telemetry.EventTypePolicyDenied {
		t.Errorf("Unexpected event: %+v", e)
	}
	if e.RequestID == nil || *e.RequestID != "req-9" {
		t.Errorf("Expected request id req-9, got %v", e.RequestID)
	}
	if e.Details == nil || *e.Details != `{"action":"deleteBucket"}` {
		t.Errorf("Unexpected details: %v", e.Details)
	}
}

func TestFromTelemetryEventWithoutRequest(t *testing.T) {
	e := FromTelemetryEvent(telemetry.Event{ID: "x", Type: "t", Message: "m"})
	if e.RequestID != nil {
		t.Errorf("Expected nil request id, got %v", *e.RequestID)
	}
	if e.Details != nil {
		t.Errorf("Expected nil details, got %v", *e.Details)
	}
}
