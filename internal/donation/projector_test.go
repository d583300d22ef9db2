// internal/donation/projector_test.go
package donation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/internal/lifecycle"
	"foodshare/pkg/eventstore"
)

func createdEvent(t *testing.T, id, donorID uuid.UUID, at time.Time) eventstore.Event {
	t.Helper()
	data, err := json.Marshal(DonationCreatedEvent{
		ID:        id,
		DonorID:   donorID,
		Title:     "Crates of apples",
		Category:  "produce",
		Quantity:  12,
		Unit:      "crate",
		ExpiresAt: at.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return eventstore.Event{
		AggregateID:   id,
		AggregateType: eventstore.AggregateDonation,
		EventType:     "DonationCreated",
		EventData:     data,
		Version:       1,
		CreatedAt:     at,
	}
}

func transitionedEvent(t *testing.T, id uuid.UUID, actor lifecycle.Actor, from, to lifecycle.Status, version int, at time.Time) eventstore.Event {
	t.Helper()
	data, err := json.Marshal(DonationTransitionedEvent{
		ID:         id,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		FromStatus: from,
		ToStatus:   to,
	})
	require.NoError(t, err)
	return eventstore.Event{
		AggregateID:   id,
		AggregateType: eventstore.AggregateDonation,
		EventType:     "DonationTransitioned",
		EventData:     data,
		Version:       version,
		CreatedAt:     at,
	}
}

func TestApplyEventReplaysFullLifecycle(t *testing.T) {
	id := uuid.New()
	donor := lifecycle.Actor{ID: uuid.New(), Role: lifecycle.RoleDonor}
	ngo := lifecycle.Actor{ID: uuid.New(), Role: lifecycle.RoleNGO}
	admin := lifecycle.Actor{ID: uuid.New(), Role: lifecycle.RoleAdmin}

	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	events := []eventstore.Event{
		createdEvent(t, id, donor.ID, t0),
		transitionedEvent(t, id, ngo, lifecycle.StatusPending, lifecycle.StatusAccepted, 2, t0.Add(time.Hour)),
		transitionedEvent(t, id, donor, lifecycle.StatusAccepted, lifecycle.StatusReadyForPickup, 3, t0.Add(2*time.Hour)),
		transitionedEvent(t, id, ngo, lifecycle.StatusReadyForPickup, lifecycle.StatusInTransit, 4, t0.Add(3*time.Hour)),
		transitionedEvent(t, id, admin, lifecycle.StatusInTransit, lifecycle.StatusDelivered, 5, t0.Add(4*time.Hour)),
		transitionedEvent(t, id, admin, lifecycle.StatusDelivered, lifecycle.StatusCompleted, 6, t0.Add(5*time.Hour)),
	}

	var d *lifecycle.Donation
	for _, ev := range events {
		next, err := applyEvent(d, ev)
		require.NoError(t, err, "version %d", ev.Version)
		d = next
	}

	assert.Equal(t, lifecycle.StatusCompleted, d.Status)
	assert.Equal(t, 6, d.Version)
	assert.Equal(t, ngo.ID, d.RecipientID, "the claiming NGO becomes the recipient")
	assert.Equal(t, ngo.ID, d.NGOID)
	assert.Equal(t, t0.Add(time.Hour), d.AcceptedAt)
	assert.Equal(t, t0.Add(4*time.Hour), d.DeliveredAt)
	assert.Equal(t, t0.Add(5*time.Hour), d.CompletedAt)
}

func TestApplyEventRejectsOrphanTransition(t *testing.T) {
	ev := transitionedEvent(t, uuid.New(), lifecycle.Actor{ID: uuid.New(), Role: lifecycle.RoleAdmin},
		lifecycle.StatusPending, lifecycle.StatusCancelled, 2, time.Now())

	_, err := applyEvent(nil, ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precedes creation")
}

func TestApplyEventIgnoresForeignEventTypes(t *testing.T) {
	id := uuid.New()
	d := &lifecycle.Donation{ID: id, Status: lifecycle.StatusPending, Version: 1}

	got, err := applyEvent(d, eventstore.Event{
		AggregateID: id,
		EventType:   "UserRegistered",
		Version:     1,
	})
	require.NoError(t, err)
	assert.Same(t, d, got)
}
