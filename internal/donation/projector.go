// internal/donation/projector.go
package donation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
	"foodshare/pkg/eventstore"
)

// Projector rebuilds the donations read model from the event stream.
// The stream is the source of truth; the donations table is a
// projection of it and can be reconstructed after corruption or a
// schema change. Flag reasons live in the append-only donation_flags
// table and are left untouched. After a rebuild each donation's state
// is snapshotted so later reads replay only the events past it.
type Projector struct {
	store     *eventstore.EventStore
	repo      *service
	batchSize int
}

func NewProjector(svc Service, store *eventstore.EventStore) *Projector {
	return &Projector{
		store:     store,
		repo:      svc.(*service),
		batchSize: 500,
	}
}

func (p *Projector) Rebuild(ctx context.Context) error {
	states := make(map[uuid.UUID]*lifecycle.Donation)
	var cursor int64
	var replayed int

	for {
		events, err := p.store.StreamEvents(ctx, cursor, p.batchSize)
		if err != nil {
			return fmt.Errorf("failed to stream events: %w", err)
		}
		if len(events) == 0 {
			break
		}
		for _, ev := range events {
			cursor = ev.ID
			if ev.AggregateType != eventstore.AggregateDonation {
				continue
			}
			next, err := applyEvent(states[ev.AggregateID], ev)
			if err != nil {
				return fmt.Errorf("failed to replay donation %s at version %d: %w", ev.AggregateID, ev.Version, err)
			}
			states[ev.AggregateID] = next
			replayed++
		}
	}

	tx, err := p.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM donations`); err != nil {
		return fmt.Errorf("failed to clear read model: %w", err)
	}
	// Insert writes the base columns, update fills assignments and
	// milestones, same as the live write path.
	for _, d := range states {
		if err := p.repo.insertDonationIntoReadModel(ctx, tx, d); err != nil {
			return fmt.Errorf("failed to project donation %s: %w", d.ID, err)
		}
		if err := p.repo.updateDonationInReadModel(ctx, tx, d); err != nil {
			return fmt.Errorf("failed to project donation %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, d := range states {
		state, err := json.Marshal(d)
		if err != nil {
			log.Printf("Failed to marshal snapshot for donation %s: %v", d.ID, err)
			continue
		}
		snapshot := eventstore.Snapshot{
			AggregateID:   d.ID,
			AggregateType: eventstore.AggregateDonation,
			Version:       d.Version,
			State:         state,
		}
		if err := p.store.SaveSnapshot(ctx, snapshot); err != nil {
			log.Printf("Failed to save snapshot for donation %s: %v", d.ID, err)
		}
	}

	log.Printf("Rebuilt read model: %d donations from %d events", len(states), replayed)
	return nil
}

// applyEvent folds one persisted event into the donation's state.
// Transitions replay through the engine, so a rebuilt donation carries
// the same assignments and milestone timestamps the live path wrote.
func applyEvent(current *lifecycle.Donation, ev eventstore.Event) (*lifecycle.Donation, error) {
	switch ev.EventType {
	case "DonationCreated":
		var data DonationCreatedEvent
		if err := json.Unmarshal(ev.EventData, &data); err != nil {
			return nil, fmt.Errorf("failed to decode creation event: %w", err)
		}
		return &lifecycle.Donation{
			ID:          data.ID,
			DonorID:     data.DonorID,
			Title:       data.Title,
			Description: data.Description,
			Category:    data.Category,
			Quantity:    data.Quantity,
			Unit:        data.Unit,
			Location:    data.Location,
			Status:      lifecycle.StatusPending,
			ExpiresAt:   data.ExpiresAt,
			CreatedAt:   ev.CreatedAt,
			Version:     ev.Version,
		}, nil
	case "DonationTransitioned":
		if current == nil {
			return nil, fmt.Errorf("transition event precedes creation")
		}
		var data DonationTransitionedEvent
		if err := json.Unmarshal(ev.EventData, &data); err != nil {
			return nil, fmt.Errorf("failed to decode transition event: %w", err)
		}
		actor := lifecycle.Actor{ID: data.ActorID, Role: data.ActorRole}
		result, err := lifecycle.AttemptTransition(*current, data.ToStatus, actor, ev.CreatedAt)
		if err != nil {
			return nil, err
		}
		d := result.Donation
		return &d, nil
	default:
		return current, nil
	}
}

// loadFromStream reconstructs a donation from its snapshot and the
// events appended since. Serving reads survive a lost or lagging read
// model row this way.
func (s *service) loadFromStream(ctx context.Context, id uuid.UUID) (*lifecycle.Donation, error) {
	var d *lifecycle.Donation
	fromVersion := 1

	snap, err := s.eventStore.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap != nil && snap.AggregateType == eventstore.AggregateDonation {
		d = &lifecycle.Donation{}
		if err := json.Unmarshal(snap.State, d); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot for donation %s: %w", id, err)
		}
		fromVersion = snap.Version + 1
	}

	events, err := s.eventStore.LoadEvents(ctx, id, fromVersion, 0)
	if err != nil {
		return nil, err
	}
	if d == nil && len(events) == 0 {
		return nil, fmt.Errorf("donation with ID %s not found", id)
	}
	for _, ev := range events {
		next, err := applyEvent(d, ev)
		if err != nil {
			return nil, fmt.Errorf("failed to replay donation %s at version %d: %w", id, ev.Version, err)
		}
		d = next
	}
	return d, nil
}
