// internal/outbox/repository.go
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusCreated        TaskStatus = "CREATED"
	TaskStatusProcessing     TaskStatus = "PROCESSING"
	TaskStatusFailed         TaskStatus = "FAILED"
	TaskStatusNoAttemptsLeft TaskStatus = "NO_ATTEMPTS_LEFT"
)

type Task struct {
	ID           int64
	PartitionKey string
	Payload      []byte
	Status       TaskStatus
	AttemptCount int
}

// Repository stores notification payloads in the notification_outbox
// table until the poller ships them to Kafka. Enqueue runs on the
// caller's transaction when one is supplied, so a donation transition
// and its outbox row commit atomically.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Enqueue stores a payload for delivery. partitionKey groups related
// payloads onto one Kafka partition; callers pass the recipient's user
// ID so a user's notifications keep their order.
func (r *Repository) Enqueue(ctx context.Context, tx execer, partitionKey string, payload interface{}) error {
	if tx == nil {
		tx = r.db
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO notification_outbox (partition_key, payload, status) VALUES ($1, $2, $3)`,
		partitionKey, data, TaskStatusCreated)
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox task: %w", err)
	}
	return nil
}

func (r *Repository) GetPendingTasks(ctx context.Context, limit, maxAttempts int) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, partition_key, payload, status, attempt_count
		FROM notification_outbox
		WHERE status IN ($1, $2)
		  AND attempt_count < $3
		  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
		ORDER BY id
		LIMIT $4`,
		TaskStatusCreated, TaskStatusFailed, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending outbox tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.PartitionKey, &t.Payload, &t.Status, &t.AttemptCount); err != nil {
			return nil, fmt.Errorf("failed to scan outbox task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *Repository) MarkProcessing(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notification_outbox SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)`,
		TaskStatusProcessing, id, TaskStatusCreated, TaskStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to mark outbox task processing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("outbox task %d already claimed", id)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notification_outbox WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete outbox task: %w", err)
	}
	return nil
}

func (r *Repository) MarkFailure(ctx context.Context, id int64, attempt int, status TaskStatus, nextAttempt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = $1, attempt_count = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $4`,
		status, attempt, nextAttempt, id)
	if err != nil {
		return fmt.Errorf("failed to record outbox failure: %w", err)
	}
	return nil
}
