// internal/donation/implementation.go
package donation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"foodshare/internal/audit"
	"foodshare/internal/lifecycle"
	"foodshare/internal/notification"
	"foodshare/internal/outbox"
	"foodshare/internal/stats"
	"foodshare/pkg/eventstore"
)

var tracer = otel.Tracer("foodshare/donation")

// maxTransitionAttempts bounds the reload-and-retry loop when racing
// writers collide on the same donation version.
const maxTransitionAttempts = 3

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sql.DB
	outbox     *outbox.Repository
	stats      *stats.Sink
	audit      *audit.WorkerPool
}

// NewService creates a new donation service instance. The outbox, stats
// and audit sinks may be nil, in which case the matching effects are
// skipped.
func NewService(es *eventstore.EventStore, db *sql.DB, ob *outbox.Repository, st *stats.Sink, au *audit.WorkerPool) Service {
	return &service{
		eventStore: es,
		db:         db,
		outbox:     ob,
		stats:      st,
		audit:      au,
	}
}

// CreateDonation posts a new surplus listing in the pending state.
func (s *service) CreateDonation(ctx context.Context, donorID uuid.UUID, input CreateDonationInput) (*lifecycle.Donation, error) {
	ctx, span := tracer.Start(ctx, "DonationService.CreateDonation")
	defer span.End()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &lifecycle.Donation{
		ID:          uuid.New(),
		DonorID:     donorID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Quantity:    input.Quantity,
		Unit:        input.Unit,
		Location:    input.Location,
		Status:      lifecycle.StatusPending,
		ExpiresAt:   input.ExpiresAt.UTC(),
		CreatedAt:   now,
		Version:     1,
	}

	eventData, err := json.Marshal(DonationCreatedEvent{
		ID:          d.ID,
		DonorID:     d.DonorID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Quantity:    d.Quantity,
		Unit:        d.Unit,
		Location:    d.Location,
		ExpiresAt:   d.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   d.ID,
		AggregateType: eventstore.AggregateDonation,
		EventType:     "DonationCreated",
		EventData:     eventData,
		Version:       1,
	}

	if err := s.eventStore.AppendEvents(ctx, d.ID, eventstore.AggregateDonation, 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.insertDonationIntoReadModel(ctx, tx, d); err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return d, nil
}

func validateInput(input CreateDonationInput) error {
	var problems []string
	if strings.TrimSpace(input.Title) == "" {
		problems = append(problems, "title is required")
	}
	if input.Quantity <= 0 {
		problems = append(problems, "quantity must be positive")
	}
	if strings.TrimSpace(input.Unit) == "" {
		problems = append(problems, "unit is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		problems = append(problems, "category is required")
	}
	if input.ExpiresAt.Before(time.Now()) {
		problems = append(problems, "expires_at must be in the future")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid donation: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetDonation retrieves a donation by its ID. The returned status is
// the effective one, so an overdue pending listing reads as expired.
func (s *service) GetDonation(ctx context.Context, id uuid.UUID) (*lifecycle.Donation, error) {
	ctx, span := tracer.Start(ctx, "DonationService.GetDonation")
	defer span.End()

	d, err := s.getDonationFromReadModel(ctx, id)
	if err != nil {
		// The stream is the source of truth; a lost read model row can
		// still be served from the snapshot plus the events past it.
		if !strings.Contains(err.Error(), "not found") {
			return nil, err
		}
		d, err = s.loadFromStream(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	d.Status = lifecycle.EffectiveStatus(*d, time.Now().UTC())
	return d, nil
}

// ListDonations returns a page of donations matching the filter.
func (s *service) ListDonations(ctx context.Context, filter ListFilter) ([]*lifecycle.Donation, error) {
	ctx, span := tracer.Start(ctx, "DonationService.ListDonations")
	defer span.End()

	donations, err := s.listDonationsFromReadModel(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, d := range donations {
		d.Status = lifecycle.EffectiveStatus(*d, now)
	}
	return donations, nil
}

// Transition drives a donation to the target status on behalf of the
// actor. Racing writers are serialized by the event store version; a
// losing writer reloads and retries until the transition either lands
// or becomes illegal against the new state.
func (s *service) Transition(ctx context.Context, donationID uuid.UUID, target lifecycle.Status, actor lifecycle.Actor, note string) (*lifecycle.Donation, error) {
	ctx, span := tracer.Start(ctx, "DonationService.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("donation.id", donationID.String()),
		attribute.String("donation.target", string(target)),
		attribute.String("actor.role", string(actor.Role)),
	)

	return s.transition(ctx, donationID, actor, note, nil,
		func(*lifecycle.Donation) lifecycle.Status { return target })
}

// Flag marks a donation for moderation review and records the reason.
func (s *service) Flag(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor, reason string) (*lifecycle.Donation, error) {
	ctx, span := tracer.Start(ctx, "DonationService.Flag")
	defer span.End()

	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("flag reason is required")
	}
	flag := &lifecycle.Flag{
		Reason:     reason,
		ReporterID: actor.ID,
		CreatedAt:  time.Now().UTC(),
	}
	return s.transition(ctx, donationID, actor, reason, flag,
		func(*lifecycle.Donation) lifecycle.Status { return lifecycle.StatusFlagged })
}

// ClearFlag restores a flagged donation to the status it held before
// moderation froze it.
func (s *service) ClearFlag(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor) (*lifecycle.Donation, error) {
	ctx, span := tracer.Start(ctx, "DonationService.ClearFlag")
	defer span.End()

	return s.transition(ctx, donationID, actor, "flag cleared", nil,
		func(d *lifecycle.Donation) lifecycle.Status { return d.PriorStatus })
}

// transition runs the reload-attempt-persist loop. targetFn is called
// against each freshly loaded state, which lets ClearFlag resolve the
// restore target per attempt.
func (s *service) transition(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor, note string, flag *lifecycle.Flag, targetFn func(*lifecycle.Donation) lifecycle.Status) (*lifecycle.Donation, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		current, err := s.getDonationFromReadModel(ctx, donationID)
		if err != nil {
			return nil, err
		}

		target := targetFn(current)
		result, err := lifecycle.AttemptTransition(*current, target, actor, time.Now().UTC())
		if err != nil {
			return nil, err
		}

		eventData, err := json.Marshal(DonationTransitionedEvent{
			ID:         donationID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			FromStatus: current.Status,
			ToStatus:   target,
			Note:       note,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event data: %w", err)
		}

		event := eventstore.Event{
			AggregateID:   donationID,
			AggregateType: eventstore.AggregateDonation,
			EventType:     "DonationTransitioned",
			EventData:     eventData,
			Version:       result.Donation.Version,
		}

		err = s.eventStore.AppendEvents(ctx, donationID, eventstore.AggregateDonation, current.Version, []eventstore.Event{event})
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to append event: %w", err)
		}

		if flag != nil {
			result.Donation.Flags = append(result.Donation.Flags, *flag)
		}

		if err := s.persistTransition(ctx, &result.Donation, flag, result.Effects); err != nil {
			return nil, err
		}
		s.dispatchEffects(ctx, donationID, result.Effects)

		return &result.Donation, nil
	}
	return nil, fmt.Errorf("transition on donation %s lost %d races: %w", donationID, maxTransitionAttempts, eventstore.ErrConcurrencyConflict)
}

// persistTransition commits the read model update, the flag record and
// the outgoing notifications in one transaction, so a notification is
// never enqueued for a state that did not stick.
func (s *service) persistTransition(ctx context.Context, d *lifecycle.Donation, flag *lifecycle.Flag, effects []lifecycle.Effect) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.updateDonationInReadModel(ctx, tx, d); err != nil {
		return fmt.Errorf("failed to update read model: %w", err)
	}
	if flag != nil {
		if err := s.insertFlag(ctx, tx, d.ID, *flag); err != nil {
			return fmt.Errorf("failed to record flag: %w", err)
		}
	}

	if s.outbox != nil {
		for _, effect := range effects {
			notify, ok := effect.(lifecycle.NotifyUser)
			if !ok {
				continue
			}
			payload := notification.Payload{
				UserID:   notify.UserID,
				Title:    notify.Title,
				Message:  notify.Message,
				Severity: notify.Severity,
			}
			if err := s.outbox.Enqueue(ctx, tx, notify.UserID.String(), payload); err != nil {
				return fmt.Errorf("failed to enqueue notification: %w", err)
			}
		}
	}

	return tx.Commit()
}

// dispatchEffects applies the stat and audit effects after the
// transition is durable. Both are best effort; a failed counter bump
// or a full audit channel never rolls back a committed transition.
func (s *service) dispatchEffects(ctx context.Context, donationID uuid.UUID, effects []lifecycle.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case lifecycle.IncrementStat:
			if s.stats == nil {
				continue
			}
			if err := s.stats.Increment(ctx, e.Name, e.Delta); err != nil {
				log.Printf("Failed to increment stat %s for donation %s: %v", e.Name, donationID, err)
			}
		case lifecycle.AppendAuditEntry:
			if s.audit == nil {
				continue
			}
			s.audit.Append(audit.Entry{
				DonationID: donationID.String(),
				ActorID:    e.ActorID.String(),
				FromStatus: string(e.From),
				ToStatus:   string(e.To),
				Note:       e.Note,
				CreatedAt:  time.Now().UTC(),
			})
		}
	}
}
