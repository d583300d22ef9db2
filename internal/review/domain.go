// internal/review/domain.go
package review

import (
	"time"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// Review is feedback left by one of the parties of a delivered
// donation. Each reviewer gets one review per donation.
type Review struct {
	ID           uuid.UUID      `json:"id"`
	DonationID   uuid.UUID      `json:"donation_id"`
	ReviewerID   uuid.UUID      `json:"reviewer_id"`
	ReviewerRole lifecycle.Role `json:"reviewer_role"`
	Rating       int            `json:"rating"`
	Comment      string         `json:"comment"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CreateReviewInput is the payload for posting a review.
type CreateReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
