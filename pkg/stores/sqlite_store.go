package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openfroyo/sdkbridge/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultListLimit caps list queries without an explicit limit.
const DefaultListLimit = 100

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: is a separate database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Open creates, initializes and migrates a store.
func Open(ctx context.Context, cfg Config) (*SQLiteStore, error) {
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", s.cfg.Path)
	if s.cfg.Path == ":memory:" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// RecordInvocation appends an invocation record and sets its ID.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv *Invocation) error {
	query := `
		INSERT INTO invocations (
			request_id, request_type, stack_id, logical_resource_id, physical_resource_id,
			package, action, status, reason, error_code, data, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	if inv.Data == "" {
		inv.Data = "{}"
	}

	result, err := s.db.ExecContext(ctx, query,
		inv.RequestID,
		inv.RequestType,
		inv.StackID,
		inv.LogicalResourceID,
		inv.PhysicalResourceID,
		inv.Package,
		inv.Action,
		string(inv.Status),
		inv.Reason,
		inv.ErrorCode,
		inv.Data,
		inv.Duration.Milliseconds(),
		inv.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invocation ID: %w", err)
	}

	inv.ID = id
	return nil
}

const invocationColumns = `
	id, request_id, request_type, stack_id, logical_resource_id, physical_resource_id,
	package, action, status, reason, error_code, data, duration_ms, created_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvocation(row rowScanner) (*Invocation, error) {
	inv := &Invocation{}
	var (
		status     string
		durationMS int64
		createdAt  int64
	)
	err := row.Scan(
		&inv.ID,
		&inv.RequestID,
		&inv.RequestType,
		&inv.StackID,
		&inv.LogicalResourceID,
		&inv.PhysicalResourceID,
		&inv.Package,
		&inv.Action,
		&status,
		&inv.Reason,
		&inv.ErrorCode,
		&inv.Data,
		&durationMS,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = engine.Status(status)
	inv.Duration = time.Duration(durationMS) * time.Millisecond
	inv.CreatedAt = time.UnixMilli(createdAt)
	return inv, nil
}

// GetInvocation retrieves an invocation by ID
func (s *SQLiteStore) GetInvocation(ctx context.Context, id int64) (*Invocation, error) {
	query := `SELECT ` + invocationColumns + ` FROM invocations WHERE id = ?`

	inv, err := scanInvocation(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invocation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}

	return inv, nil
}

// ListInvocations lists invocations, newest first.
func (s *SQLiteStore) ListInvocations(ctx context.Context, filter InvocationFilter) ([]*Invocation, error) {
	query := `SELECT ` + invocationColumns + `
		FROM invocations
		WHERE (? = '' OR request_id = ?)
		  AND (? = '' OR logical_resource_id = ?)
		  AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	status := string(filter.Status)

	rows, err := s.db.QueryContext(ctx, query,
		filter.RequestID, filter.RequestID,
		filter.LogicalResourceID, filter.LogicalResourceID,
		status, status,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	invocations := []*Invocation{}
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		invocations = append(invocations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}

	return invocations, nil
}

// PruneInvocations deletes invocations and events recorded before the
// cutoff and returns the number of invocations removed.
func (s *SQLiteStore) PruneInvocations(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UnixMilli()

	result, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}

	return result.RowsAffected()
}

// AppendEvent appends a new event to the log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (event_id, type, source, request_id, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	result, err := s.db.ExecContext(ctx, query,
		event.EventID,
		event.Type,
		event.Source,
		event.RequestID,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// ListEvents retrieves events with optional filters and pagination, newest
// first.
func (s *SQLiteStore) ListEvents(ctx context.Context, requestID *string, level *string, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, event_id, type, source, request_id, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR request_id = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, query, requestID, requestID, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		var ts int64
		err := rows.Scan(
			&event.ID,
			&event.EventID,
			&event.Type,
			&event.Source,
			&event.RequestID,
			&event.Level,
			&event.Message,
			&event.Details,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Timestamp = time.UnixMilli(ts)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}
