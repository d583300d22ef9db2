// internal/notification/domain.go
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a message delivered to a user's in-app inbox.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Payload is the wire format carried through the outbox and Kafka.
type Payload struct {
	UserID   uuid.UUID `json:"user_id"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
}
