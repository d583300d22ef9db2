// internal/notification/service.go
package notification

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the notification service.
type Service interface {
	Record(ctx context.Context, payload Payload) (*Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}
