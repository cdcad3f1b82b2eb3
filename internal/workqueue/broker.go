package workqueue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"finlens/internal/services"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the queue database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("queue schema version mismatch")

const defaultLease = 5 * time.Minute

// Task is a claimed unit of work referencing a job by identifier.
type Task struct {
	ID         int64
	JobID      string
	EnqueuedAt time.Time
	Attempts   int
}

// Broker is a durable at-least-once task queue backed by SQLite. A dequeued
// task holds a lease; tasks whose lease expires become claimable again, so a
// crashed worker never strands a job. Infrastructure failures surface as
// services.ErrUnavailable so callers can fall back to inline execution.
type Broker struct {
	db    *sql.DB
	path  string
	lease time.Duration
}

// Open initializes or connects to the queue database at path. lease bounds
// how long a dequeued task stays claimed before redelivery; zero selects the
// default.
func Open(path string, lease time.Duration) (*Broker, error) {
	if lease <= 0 {
		lease = defaultLease
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	broker := &Broker{db: db, path: path, lease: lease}
	if err := broker.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return broker, nil
}

// Close closes the underlying database connection.
func (b *Broker) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Broker) initSchema(ctx context.Context) error {
	var tableExists int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return b.createSchema(ctx)
	}

	var version int
	err = b.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (b *Broker) createSchema(ctx context.Context) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create queue schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit queue schema: %w", err)
	}
	return nil
}

// Enqueue adds a task for the given job. Enqueueing the same job twice is a
// conflict.
func (b *Broker) Enqueue(ctx context.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return services.Wrap(services.ErrValidation, "workqueue", "enqueue", "job id must not be empty", nil)
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO tasks (job_id, enqueued_at) VALUES (?, ?)`,
		jobID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.Wrap(services.ErrConflict, "workqueue", "enqueue",
				fmt.Sprintf("job %s is already queued", jobID), nil)
		}
		return unavailable("enqueue", err)
	}
	return nil
}

// Dequeue claims the oldest claimable task: one that has never been leased or
// whose lease has expired. It returns nil when the queue is empty.
func (b *Broker) Dequeue(ctx context.Context) (*Task, error) {
	now := time.Now().UTC()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("dequeue", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT id, job_id, enqueued_at, attempts FROM tasks
         WHERE lease_expires_at IS NULL OR lease_expires_at <= ?
         ORDER BY enqueued_at ASC, id ASC LIMIT 1`,
		now.Format(time.RFC3339Nano),
	)

	var (
		task        Task
		enqueuedRaw string
	)
	err = row.Scan(&task.ID, &task.JobID, &enqueuedRaw, &task.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("dequeue", err)
	}
	if enqueued, parseErr := time.Parse(time.RFC3339Nano, enqueuedRaw); parseErr == nil {
		task.EnqueuedAt = enqueued
	}

	task.Attempts++
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET lease_expires_at = ?, attempts = ? WHERE id = ?`,
		now.Add(b.lease).Format(time.RFC3339Nano),
		task.Attempts,
		task.ID,
	)
	if err != nil {
		return nil, unavailable("dequeue", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("dequeue", err)
	}
	return &task, nil
}

// Ack removes a claimed task from the queue. Acking an already removed task
// is a no-op.
func (b *Broker) Ack(ctx context.Context, taskID int64) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return unavailable("ack", err)
	}
	return nil
}

// Depth reports how many tasks are currently in the queue, claimed or not.
func (b *Broker) Depth(ctx context.Context) (int, error) {
	var depth int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks`).Scan(&depth); err != nil {
		return 0, unavailable("depth", err)
	}
	return depth, nil
}

// Ping verifies the queue backend is reachable.
func (b *Broker) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return services.Wrap(services.ErrUnavailable, "workqueue", op, "queue backend error", err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: tasks.job_id")
}
