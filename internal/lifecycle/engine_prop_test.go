package lifecycle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"foodshare/internal/lifecycle"
)

var allStatuses = []lifecycle.Status{
	lifecycle.StatusPending, lifecycle.StatusAccepted, lifecycle.StatusRejected,
	lifecycle.StatusReadyForPickup, lifecycle.StatusInTransit, lifecycle.StatusDelivered,
	lifecycle.StatusCompleted, lifecycle.StatusCancelled, lifecycle.StatusFlagged,
}

var allRoles = []lifecycle.Role{
	lifecycle.RoleDonor, lifecycle.RoleBeneficiary, lifecycle.RoleNGO, lifecycle.RoleAdmin,
}

func genDonation(t *rapid.T) lifecycle.Donation {
	d := lifecycle.Donation{
		ID:        uuid.New(),
		DonorID:   donorID,
		Title:     rapid.StringMatching(`[a-z]{3,12}`).Draw(t, "title"),
		Category:  "produce",
		Quantity:  rapid.IntRange(1, 500).Draw(t, "quantity"),
		Unit:      "kg",
		Status:    rapid.SampledFrom(allStatuses).Draw(t, "status"),
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now().Add(-time.Hour),
		Version:   rapid.IntRange(1, 50).Draw(t, "version"),
	}
	if rapid.Bool().Draw(t, "claimed") {
		d.RecipientID = recipientID
	}
	if rapid.Bool().Draw(t, "assigned") {
		d.NGOID = ngoID
	}
	if d.Status == lifecycle.StatusFlagged {
		d.PriorStatus = rapid.SampledFrom([]lifecycle.Status{
			lifecycle.StatusPending, lifecycle.StatusAccepted,
			lifecycle.StatusReadyForPickup, lifecycle.StatusInTransit,
		}).Draw(t, "prior")
	}
	return d
}

func genActor(t *rapid.T) lifecycle.Actor {
	return lifecycle.Actor{
		ID:   rapid.SampledFrom([]uuid.UUID{donorID, recipientID, ngoID, adminID, strangerID}).Draw(t, "actor_id"),
		Role: rapid.SampledFrom(allRoles).Draw(t, "role"),
	}
}

// Every failure is one of the five documented kinds, and terminal statuses
// absorb everything.
func TestTransitionErrorsAreTyped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDonation(t)
		target := rapid.SampledFrom(allStatuses).Draw(t, "target")
		actor := genActor(t)

		res, err := lifecycle.AttemptTransition(d, target, actor, time.Now())
		if err == nil {
			if res.Donation.Status != target {
				t.Fatalf("success must land on the target status, got %s", res.Donation.Status)
			}
			return
		}

		known := errors.Is(err, lifecycle.ErrIllegalTransition) ||
			errors.Is(err, lifecycle.ErrUnauthorizedRole) ||
			errors.Is(err, lifecycle.ErrNotOwner) ||
			errors.Is(err, lifecycle.ErrMissingAssignment) ||
			errors.Is(err, lifecycle.ErrAlreadyTerminal)
		if !known {
			t.Fatalf("unexpected error kind: %v", err)
		}

		if lifecycle.IsTerminal(d.Status) && !errors.Is(err, lifecycle.ErrAlreadyTerminal) {
			t.Fatalf("terminal %s must absorb, got %v", d.Status, err)
		}
	})
}

// A successful transition never rewrites an already-set milestone timestamp
// and always bumps the version by exactly one.
func TestTransitionPreservesMilestonesAndBumpsVersion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDonation(t)
		stamp := time.Now().Add(-30 * time.Minute)
		switch d.Status {
		case lifecycle.StatusAccepted:
			d.AcceptedAt = stamp
		case lifecycle.StatusReadyForPickup:
			d.ReadyAt = stamp
		case lifecycle.StatusInTransit:
			d.InTransitAt = stamp
		case lifecycle.StatusDelivered:
			d.DeliveredAt = stamp
		}

		target := rapid.SampledFrom(allStatuses).Draw(t, "target")
		actor := genActor(t)

		res, err := lifecycle.AttemptTransition(d, target, actor, time.Now())
		if err != nil {
			return
		}

		if res.Donation.Version != d.Version+1 {
			t.Fatalf("version %d -> %d, want +1", d.Version, res.Donation.Version)
		}
		if !d.AcceptedAt.IsZero() && !res.Donation.AcceptedAt.Equal(d.AcceptedAt) {
			t.Fatalf("accepted milestone rewritten")
		}
		if !d.ReadyAt.IsZero() && !res.Donation.ReadyAt.Equal(d.ReadyAt) {
			t.Fatalf("ready milestone rewritten")
		}
		if !d.InTransitAt.IsZero() && !res.Donation.InTransitAt.Equal(d.InTransitAt) {
			t.Fatalf("in-transit milestone rewritten")
		}
		if !d.DeliveredAt.IsZero() && !res.Donation.DeliveredAt.Equal(d.DeliveredAt) {
			t.Fatalf("delivered milestone rewritten")
		}
	})
}

// Every successful transition carries exactly one audit entry, recorded as
// the final effect, with the correct from/to pair.
func TestEverySuccessIsAudited(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDonation(t)
		target := rapid.SampledFrom(allStatuses).Draw(t, "target")
		actor := genActor(t)

		res, err := lifecycle.AttemptTransition(d, target, actor, time.Now())
		if err != nil {
			return
		}

		entries := auditEntries(res.Effects)
		if len(entries) != 1 {
			t.Fatalf("want exactly one audit entry, got %d", len(entries))
		}
		if entries[0].From != d.Status || entries[0].To != target {
			t.Fatalf("audit entry %s -> %s, want %s -> %s",
				entries[0].From, entries[0].To, d.Status, target)
		}
		if _, ok := res.Effects[len(res.Effects)-1].(lifecycle.AppendAuditEntry); !ok {
			t.Fatalf("audit entry must be the final effect")
		}
	})
}
