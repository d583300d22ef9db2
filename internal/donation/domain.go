// internal/donation/domain.go
package donation

import (
	"time"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// CreateDonationInput is the payload for posting a new surplus listing.
type CreateDonationInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	Location    string    `json:"location"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ListFilter narrows a donation listing query. A zero filter returns
// the newest donations platform-wide.
type ListFilter struct {
	Status   lifecycle.Status
	Category string
	DonorID  uuid.UUID
	UserID   uuid.UUID // matches donor, recipient or NGO
	Cursor   time.Time // created_at of the last row of the previous page
	Limit    int
}

// DonationCreatedEvent is appended when a donor posts a listing.
type DonationCreatedEvent struct {
	ID          uuid.UUID `json:"id"`
	DonorID     uuid.UUID `json:"donor_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	Location    string    `json:"location"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DonationTransitionedEvent is appended for every status change,
// including flagging and restores.
type DonationTransitionedEvent struct {
	ID         uuid.UUID        `json:"id"`
	ActorID    uuid.UUID        `json:"actor_id"`
	ActorRole  lifecycle.Role   `json:"actor_role"`
	FromStatus lifecycle.Status `json:"from_status"`
	ToStatus   lifecycle.Status `json:"to_status"`
	Note       string           `json:"note,omitempty"`
}
