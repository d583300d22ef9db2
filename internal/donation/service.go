// internal/donation/service.go
package donation

import (
	"context"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// Service defines the interface for the donation service.
type Service interface {
	CreateDonation(ctx context.Context, donorID uuid.UUID, input CreateDonationInput) (*lifecycle.Donation, error)
	GetDonation(ctx context.Context, id uuid.UUID) (*lifecycle.Donation, error)
	ListDonations(ctx context.Context, filter ListFilter) ([]*lifecycle.Donation, error)
	Transition(ctx context.Context, donationID uuid.UUID, target lifecycle.Status, actor lifecycle.Actor, note string) (*lifecycle.Donation, error)
	Flag(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor, reason string) (*lifecycle.Donation, error)
	ClearFlag(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor) (*lifecycle.Donation, error)
}
