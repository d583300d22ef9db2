// internal/review/service.go
package review

import (
	"context"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// Service defines the interface for the review service.
type Service interface {
	CreateReview(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor, input CreateReviewInput) (*Review, error)
	ListForDonation(ctx context.Context, donationID uuid.UUID) ([]*Review, error)
}
