// internal/review/implementation.go
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"foodshare/internal/lifecycle"
)

var tracer = otel.Tracer("foodshare/review")

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrNotReviewable   = errors.New("donation is not reviewable yet")
	ErrNotParticipant  = errors.New("only parties of the donation may review it")
	ErrDuplicateReview = errors.New("reviewer already reviewed this donation")
)

// DonationGetter looks up the donation under review.
type DonationGetter interface {
	GetDonation(ctx context.Context, id uuid.UUID) (*lifecycle.Donation, error)
}

// service implements the Service interface.
type service struct {
	db        *sql.DB
	donations DonationGetter
}

// NewService creates a new review service instance.
func NewService(db *sql.DB, donations DonationGetter) Service {
	return &service{db: db, donations: donations}
}

// CreateReview records feedback on a delivered or completed donation.
func (s *service) CreateReview(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor, input CreateReviewInput) (*Review, error) {
	ctx, span := tracer.Start(ctx, "ReviewService.CreateReview")
	defer span.End()

	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}

	d, err := s.donations.GetDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if d.Status != lifecycle.StatusDelivered && d.Status != lifecycle.StatusCompleted {
		return nil, ErrNotReviewable
	}
	if actor.ID != d.DonorID && actor.ID != d.RecipientID && actor.ID != d.NGOID {
		return nil, ErrNotParticipant
	}

	review := &Review{
		ID:           uuid.New(),
		DonationID:   donationID,
		ReviewerID:   actor.ID,
		ReviewerRole: actor.Role,
		Rating:       input.Rating,
		Comment:      input.Comment,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, donation_id, reviewer_id, reviewer_role, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		review.ID, review.DonationID, review.ReviewerID, review.ReviewerRole, review.Rating, review.Comment, review.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}

	return review, nil
}

// ListForDonation returns all reviews left on a donation.
func (s *service) ListForDonation(ctx context.Context, donationID uuid.UUID) ([]*Review, error) {
	ctx, span := tracer.Start(ctx, "ReviewService.ListForDonation")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, donation_id, reviewer_id, reviewer_role, rating, comment, created_at
		FROM reviews
		WHERE donation_id = $1
		ORDER BY created_at`,
		donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		rev := &Review{}
		if err := rows.Scan(&rev.ID, &rev.DonationID, &rev.ReviewerID, &rev.ReviewerRole, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}
