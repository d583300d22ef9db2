// internal/notification/implementation.go
package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("foodshare/notification")

// service implements the Service interface.
type service struct {
	db *sql.DB
}

// NewService creates a new notification service instance.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

func (s *service) Record(ctx context.Context, payload Payload) (*Notification, error) {
	ctx, span := tracer.Start(ctx, "NotificationService.Record")
	defer span.End()

	n := &Notification{
		ID:       uuid.New(),
		UserID:   payload.UserID,
		Title:    payload.Title,
		Message:  payload.Message,
		Severity: payload.Severity,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, severity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		n.ID, n.UserID, n.Title, n.Message, n.Severity).Scan(&n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	return n, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error) {
	ctx, span := tracer.Start(ctx, "NotificationService.ListForUser")
	defer span.End()

	query := `
		SELECT id, user_id, title, message, severity, read, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Severity, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "NotificationService.MarkRead")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}
