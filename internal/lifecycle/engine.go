// internal/lifecycle/engine.go

// Package lifecycle is the single authority on donation status transitions:
// which (from, to) pairs are legal, which role may trigger them, and which
// side effects each transition produces. Callers never reimplement these
// rules; they ask this package and render the answer.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrIllegalTransition means the (current, target) pair is not in the
	// transition table.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrUnauthorizedRole means the pair is legal but not for this role.
	ErrUnauthorizedRole = errors.New("role not permitted for this transition")
	// ErrNotOwner means the actor has the right role but is not the party
	// (donor, recipient, assigned NGO) this transition belongs to.
	ErrNotOwner = errors.New("actor is not the owning party for this transition")
	// ErrMissingAssignment means a required recipient or NGO assignment is
	// not set yet.
	ErrMissingAssignment = errors.New("required assignment is missing")
	// ErrAlreadyTerminal means the donation is completed, cancelled or
	// rejected and admits no further transitions.
	ErrAlreadyTerminal = errors.New("donation is in a terminal status")
)

// TransitionResult is the outcome of a legal transition: the donation as it
// should be persisted and the ordered side-effect intents for collaborators.
type TransitionResult struct {
	Donation Donation
	Effects  []Effect
}

// AttemptTransition decides whether actor may move d to target. It performs
// no I/O: on success it returns the new donation state (status, first-entry
// milestone timestamp, claim assignment, bumped version) and the effect list;
// on failure it returns one of the sentinel errors above, wrapped with
// context. The caller owns persisting the result with compare-and-swap
// semantics against d.Version.
func AttemptTransition(d Donation, target Status, actor Actor, now time.Time) (*TransitionResult, error) {
	if !ValidStatus(target) {
		return nil, fmt.Errorf("%w: unknown target status %q", ErrIllegalTransition, target)
	}
	if !ValidRole(actor.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrUnauthorizedRole, actor.Role)
	}
	if IsTerminal(d.Status) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTerminal, d.Status)
	}

	if err := authorize(d, target, actor); err != nil {
		return nil, err
	}

	next := d
	next.Version = d.Version + 1

	if d.Status == StatusFlagged {
		// Leaving the flagged state, either back to the prior status or to
		// cancelled via admin override.
		next.PriorStatus = ""
	}
	if target == StatusFlagged {
		next.PriorStatus = d.Status
	}
	if d.Status == StatusPending && target == StatusAccepted {
		// The claiming party becomes the recipient; an NGO claimant is also
		// recorded as the assigned logistics NGO.
		if next.RecipientID == uuid.Nil {
			next.RecipientID = actor.ID
		}
		if actor.Role == RoleNGO && next.NGOID == uuid.Nil {
			next.NGOID = actor.ID
		}
	}

	next.Status = target
	touchMilestone(&next, target, now)

	return &TransitionResult{
		Donation: next,
		Effects:  buildEffects(d.Status, target, next, actor),
	}, nil
}

// CanTransition reports whether the transition would succeed right now. It
// is the hook presentation layers use to decide which actions to offer.
func CanTransition(d Donation, target Status, actor Actor) bool {
	_, err := AttemptTransition(d, target, actor, time.Now())
	return err == nil
}

// AllowedTargets lists every status the actor may move d into.
func AllowedTargets(d Donation, actor Actor) []Status {
	all := []Status{
		StatusPending, StatusAccepted, StatusRejected, StatusReadyForPickup,
		StatusInTransit, StatusDelivered, StatusCompleted, StatusCancelled, StatusFlagged,
	}
	var out []Status
	for _, s := range all {
		if CanTransition(d, s, actor) {
			out = append(out, s)
		}
	}
	return out
}

// flaggable statuses: a flag can be raised from any pre-delivery working
// state and is reversible.
func flaggable(s Status) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusReadyForPickup, StatusInTransit:
		return true
	}
	return false
}

// authorize validates the (from, target) pair against the transition table
// and then checks role, ownership and assignment requirements, in that
// order, so callers get the most specific failure.
func authorize(d Donation, target Status, actor Actor) error {
	from := d.Status

	switch {
	case target == StatusCancelled:
		// Donor may cancel their own pending donation; admin may cancel any
		// non-terminal donation as an administrative override.
		if actor.Role == RoleAdmin {
			return nil
		}
		if from != StatusPending {
			return fmt.Errorf("%w: only admin may cancel a %s donation", ErrUnauthorizedRole, from)
		}
		if actor.Role != RoleDonor {
			return fmt.Errorf("%w: %s may not cancel", ErrUnauthorizedRole, actor.Role)
		}
		if actor.ID != d.DonorID {
			return fmt.Errorf("%w: only the donor who created the donation may cancel it", ErrNotOwner)
		}
		return nil

	case target == StatusFlagged:
		if !flaggable(from) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, target)
		}
		if actor.Role != RoleAdmin {
			return fmt.Errorf("%w: only admin may flag", ErrUnauthorizedRole)
		}
		return nil

	case from == StatusFlagged:
		// The only way out of flagged (besides cancellation above) is the
		// admin clear-flag, which restores the pre-flag status.
		if target != d.PriorStatus {
			return fmt.Errorf("%w: flagged donation may only return to %s", ErrIllegalTransition, d.PriorStatus)
		}
		if actor.Role != RoleAdmin {
			return fmt.Errorf("%w: only admin may clear a flag", ErrUnauthorizedRole)
		}
		return nil
	}

	switch {
	case from == StatusPending && target == StatusAccepted:
		if actor.Role != RoleBeneficiary && actor.Role != RoleNGO {
			return fmt.Errorf("%w: %s may not claim", ErrUnauthorizedRole, actor.Role)
		}
		if d.RecipientID != uuid.Nil && d.RecipientID != actor.ID {
			return fmt.Errorf("%w: donation is reserved for another recipient", ErrNotOwner)
		}
		return nil

	case from == StatusPending && target == StatusRejected:
		if actor.Role != RoleBeneficiary && actor.Role != RoleNGO {
			return fmt.Errorf("%w: %s may not reject", ErrUnauthorizedRole, actor.Role)
		}
		return nil

	case (from == StatusPending || from == StatusAccepted) && target == StatusReadyForPickup:
		if actor.Role != RoleDonor {
			return fmt.Errorf("%w: only the donor marks a donation ready", ErrUnauthorizedRole)
		}
		if actor.ID != d.DonorID {
			return fmt.Errorf("%w: only the donation's own donor marks it ready", ErrNotOwner)
		}
		return nil

	case from == StatusReadyForPickup && target == StatusInTransit:
		if actor.Role != RoleNGO && actor.Role != RoleAdmin {
			return fmt.Errorf("%w: %s may not start transit", ErrUnauthorizedRole, actor.Role)
		}
		if d.NGOID == uuid.Nil {
			return fmt.Errorf("%w: no NGO assigned for pickup", ErrMissingAssignment)
		}
		if actor.Role == RoleNGO && actor.ID != d.NGOID {
			return fmt.Errorf("%w: only the assigned NGO may start transit", ErrNotOwner)
		}
		return nil

	case from == StatusInTransit && target == StatusDelivered:
		if actor.Role != RoleBeneficiary && actor.Role != RoleAdmin {
			return fmt.Errorf("%w: %s may not confirm delivery", ErrUnauthorizedRole, actor.Role)
		}
		if d.RecipientID == uuid.Nil {
			return fmt.Errorf("%w: no recipient assigned", ErrMissingAssignment)
		}
		if actor.Role == RoleBeneficiary && actor.ID != d.RecipientID {
			return fmt.Errorf("%w: only the assigned recipient may confirm delivery", ErrNotOwner)
		}
		return nil

	case from == StatusDelivered && target == StatusCompleted:
		if actor.Role != RoleAdmin {
			return fmt.Errorf("%w: only admin completes a transfer", ErrUnauthorizedRole)
		}
		return nil
	}

	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, target)
}

// notifiable statuses trigger user notifications on entry.
func notifiable(s Status) bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusInTransit, StatusDelivered,
		StatusCompleted, StatusFlagged:
		return true
	}
	return false
}

func severityFor(s Status) string {
	switch s {
	case StatusAccepted, StatusDelivered, StatusCompleted:
		return SeveritySuccess
	case StatusRejected, StatusFlagged:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func buildEffects(from, to Status, next Donation, actor Actor) []Effect {
	var effects []Effect

	if notifiable(to) {
		title := fmt.Sprintf("Donation %s", statusLabel(to))
		message := fmt.Sprintf("%q is now %s", next.Title, statusLabel(to))
		severity := severityFor(to)

		effects = append(effects, NotifyUser{
			UserID:   next.DonorID,
			Title:    title,
			Message:  message,
			Severity: severity,
		})
		if next.RecipientID != uuid.Nil && next.RecipientID != actor.ID && next.RecipientID != next.DonorID {
			effects = append(effects, NotifyUser{
				UserID:   next.RecipientID,
				Title:    title,
				Message:  message,
				Severity: severity,
			})
		}
		if next.NGOID != uuid.Nil && next.NGOID != actor.ID && next.NGOID != next.RecipientID {
			effects = append(effects, NotifyUser{
				UserID:   next.NGOID,
				Title:    title,
				Message:  message,
				Severity: severity,
			})
		}
	}

	if to == StatusCompleted {
		effects = append(effects, IncrementStat{Name: StatCompletedTransfers, Delta: 1})
		if next.Quantity > 0 {
			effects = append(effects, IncrementStat{Name: StatMealsShared, Delta: int64(next.Quantity)})
		}
	}

	effects = append(effects, AppendAuditEntry{
		ActorID: actor.ID,
		From:    from,
		To:      to,
	})

	return effects
}

func statusLabel(s Status) string {
	switch s {
	case StatusReadyForPickup:
		return "ready for pickup"
	case StatusInTransit:
		return "in transit"
	default:
		return string(s)
	}
}
