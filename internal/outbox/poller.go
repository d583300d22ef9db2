// internal/outbox/poller.go
package outbox

import (
	"context"
	"log"
	"time"
)

type Publisher interface {
	Publish(topic, key string, value []byte) error
}

// TaskStore is the slice of Repository the poller needs.
type TaskStore interface {
	GetPendingTasks(ctx context.Context, limit, maxAttempts int) ([]*Task, error)
	MarkProcessing(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	MarkFailure(ctx context.Context, id int64, attempt int, status TaskStatus, nextAttempt time.Time) error
}

// Poller drains the notification outbox on an interval and publishes
// each payload to Kafka. Delivery is at least once: a task is deleted
// only after a successful publish, and a failed publish is retried up
// to maxAttempts before the task is parked as NO_ATTEMPTS_LEFT.
type Poller struct {
	repo         TaskStore
	producer     Publisher
	topic        string
	pollInterval time.Duration
	limit        int
	maxAttempts  int
	retryDelay   time.Duration
}

func NewPoller(repo TaskStore, producer Publisher, topic string, pollInterval time.Duration) *Poller {
	return &Poller{
		repo:         repo,
		producer:     producer,
		topic:        topic,
		pollInterval: pollInterval,
		limit:        100,
		maxAttempts:  3,
		retryDelay:   2 * time.Second,
	}
}

func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processPendingTasks(ctx)
		}
	}
}

func (p *Poller) processPendingTasks(ctx context.Context) {
	tasks, err := p.repo.GetPendingTasks(ctx, p.limit, p.maxAttempts)
	if err != nil {
		log.Printf("Error fetching pending outbox tasks: %v", err)
		return
	}
	for _, task := range tasks {
		if err := p.repo.MarkProcessing(ctx, task.ID); err != nil {
			log.Printf("Error marking outbox task %d as PROCESSING: %v", task.ID, err)
			continue
		}

		if err := p.producer.Publish(p.topic, task.PartitionKey, task.Payload); err != nil {
			p.recordFailure(ctx, task, err)
			continue
		}
		if err := p.repo.Delete(ctx, task.ID); err != nil {
			log.Printf("Error deleting outbox task %d after publish: %v", task.ID, err)
		}
	}
}

func (p *Poller) recordFailure(ctx context.Context, task *Task, err error) {
	newAttempt := task.AttemptCount + 1
	newStatus := TaskStatusFailed
	if newAttempt >= p.maxAttempts {
		newStatus = TaskStatusNoAttemptsLeft
	}
	nextAttempt := time.Now().Add(p.retryDelay)
	if errUpd := p.repo.MarkFailure(ctx, task.ID, newAttempt, newStatus, nextAttempt); errUpd != nil {
		log.Printf("Error updating outbox task %d on failure: %v", task.ID, errUpd)
	}
	log.Printf("Failed to publish outbox task %d: %v", task.ID, err)
}
