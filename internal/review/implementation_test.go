// internal/review/implementation_test.go
package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/internal/lifecycle"
)

type fakeDonations struct {
	donation *lifecycle.Donation
	err      error
}

func (f *fakeDonations) GetDonation(ctx context.Context, id uuid.UUID) (*lifecycle.Donation, error) {
	return f.donation, f.err
}

func deliveredDonation(donorID, recipientID uuid.UUID) *lifecycle.Donation {
	return &lifecycle.Donation{
		ID:          uuid.New(),
		DonorID:     donorID,
		RecipientID: recipientID,
		Status:      lifecycle.StatusDelivered,
		DeliveredAt: time.Now().UTC(),
		Version:     5,
	}
}

func TestCreateReviewRejectsOutOfRangeRating(t *testing.T) {
	donorID := uuid.New()
	svc := NewService(nil, &fakeDonations{donation: deliveredDonation(donorID, uuid.New())})

	for _, rating := range []int{0, -1, 6, 100} {
		_, err := svc.CreateReview(context.Background(), uuid.New(), lifecycle.Actor{ID: donorID, Role: lifecycle.RoleDonor}, CreateReviewInput{Rating: rating})
		require.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestCreateReviewRequiresDeliveredOrCompleted(t *testing.T) {
	donorID := uuid.New()
	for _, status := range []lifecycle.Status{
		lifecycle.StatusPending,
		lifecycle.StatusAccepted,
		lifecycle.StatusReadyForPickup,
		lifecycle.StatusInTransit,
		lifecycle.StatusCancelled,
		lifecycle.StatusRejected,
		lifecycle.StatusFlagged,
	} {
		d := deliveredDonation(donorID, uuid.New())
		d.Status = status
		svc := NewService(nil, &fakeDonations{donation: d})

		_, err := svc.CreateReview(context.Background(), d.ID, lifecycle.Actor{ID: donorID, Role: lifecycle.RoleDonor}, CreateReviewInput{Rating: 4})
		assert.ErrorIs(t, err, ErrNotReviewable, "status %s", status)
	}
}

func TestCreateReviewRejectsNonParticipants(t *testing.T) {
	d := deliveredDonation(uuid.New(), uuid.New())
	svc := NewService(nil, &fakeDonations{donation: d})

	stranger := lifecycle.Actor{ID: uuid.New(), Role: lifecycle.RoleBeneficiary}
	_, err := svc.CreateReview(context.Background(), d.ID, stranger, CreateReviewInput{Rating: 5})
	require.ErrorIs(t, err, ErrNotParticipant)
}
