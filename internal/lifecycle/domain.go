// internal/lifecycle/domain.go
package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of stored donation statuses.
type Status string

const (
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusRejected       Status = "rejected"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusInTransit      Status = "in_transit"
	StatusDelivered      Status = "delivered"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusFlagged        Status = "flagged"

	// StatusExpired is never stored; it is derived at read time by
	// EffectiveStatus for donations past their expiry window.
	StatusExpired Status = "expired"
)

// Role identifies what kind of user is acting on a donation.
type Role string

const (
	RoleDonor       Role = "donor"
	RoleBeneficiary Role = "beneficiary"
	RoleNGO         Role = "ngo"
	RoleAdmin       Role = "admin"
)

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleDonor, RoleBeneficiary, RoleNGO, RoleAdmin:
		return true
	}
	return false
}

// ValidStatus reports whether s is a storable status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusReadyForPickup,
		StatusInTransit, StatusDelivered, StatusCompleted, StatusCancelled, StatusFlagged:
		return true
	}
	return false
}

// Actor is the user requesting a transition.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// Flag records a moderation issue raised against a donation. Flags are
// append-only and are never removed, even after the flag status is cleared.
type Flag struct {
	Reason     string    `json:"reason"`
	ReporterID uuid.UUID `json:"reporter_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Donation is the central aggregate. Milestone timestamps use the zero
// value as "not reached yet" and are written exactly once, the first time
// the corresponding status is entered.
type Donation struct {
	ID          uuid.UUID `json:"id"`
	DonorID     uuid.UUID `json:"donor_id"`
	RecipientID uuid.UUID `json:"recipient_id,omitempty"`
	NGOID       uuid.UUID `json:"ngo_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	Location    string    `json:"location,omitempty"`
	Status      Status    `json:"status"`
	// PriorStatus holds the pre-flag status while Status is flagged, so an
	// admin clear-flag can restore it. Empty otherwise.
	PriorStatus Status    `json:"prior_status,omitempty"`
	Flags       []Flag    `json:"flags,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	AcceptedAt  time.Time `json:"accepted_at,omitempty"`
	RejectedAt  time.Time `json:"rejected_at,omitempty"`
	ReadyAt     time.Time `json:"ready_at,omitempty"`
	InTransitAt time.Time `json:"in_transit_at,omitempty"`
	DeliveredAt time.Time `json:"delivered_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	CancelledAt time.Time `json:"cancelled_at,omitempty"`
	FlaggedAt   time.Time `json:"flagged_at,omitempty"`
	Version     int       `json:"version"`
}

// IsTerminal reports whether s admits no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// EffectiveStatus derives the read-time status of a donation. A donation
// still waiting to move (pending, accepted or ready for pickup) whose expiry
// has passed is reported as expired even though the stored status lags.
func EffectiveStatus(d Donation, now time.Time) Status {
	switch d.Status {
	case StatusPending, StatusAccepted, StatusReadyForPickup:
		if !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt) {
			return StatusExpired
		}
	}
	return d.Status
}

// milestone returns a pointer to the timestamp field recording first entry
// into s, or nil when s has no milestone of its own.
func milestone(d *Donation, s Status) *time.Time {
	switch s {
	case StatusPending:
		return &d.CreatedAt
	case StatusAccepted:
		return &d.AcceptedAt
	case StatusRejected:
		return &d.RejectedAt
	case StatusReadyForPickup:
		return &d.ReadyAt
	case StatusInTransit:
		return &d.InTransitAt
	case StatusDelivered:
		return &d.DeliveredAt
	case StatusCompleted:
		return &d.CompletedAt
	case StatusCancelled:
		return &d.CancelledAt
	case StatusFlagged:
		return &d.FlaggedAt
	}
	return nil
}

// touchMilestone stamps the milestone for s if it has never been reached.
// Re-entering a status (possible after a flag is cleared) keeps the
// original timestamp.
func touchMilestone(d *Donation, s Status, now time.Time) {
	if ts := milestone(d, s); ts != nil && ts.IsZero() {
		*ts = now
	}
}
