// internal/donation/sweeper.go
package donation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// Sweeper closes out delivered donations that nobody confirmed within
// the grace period, acting as the platform itself.
type Sweeper struct {
	service  Service
	repo     *service
	grace    time.Duration
	interval time.Duration
	systemID uuid.UUID
}

func NewSweeper(svc Service, grace, interval time.Duration) *Sweeper {
	repo, _ := svc.(*service)
	return &Sweeper{
		service:  svc,
		repo:     repo,
		grace:    grace,
		interval: interval,
		systemID: uuid.New(),
	}
}

func (sw *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	if sw.repo == nil {
		return
	}
	cutoff := time.Now().UTC().Add(-sw.grace)
	ids, err := sw.repo.listDeliveredBefore(ctx, cutoff)
	if err != nil {
		log.Printf("Sweeper failed to list delivered donations: %v", err)
		return
	}

	actor := lifecycle.Actor{ID: sw.systemID, Role: lifecycle.RoleAdmin}
	for _, id := range ids {
		_, err := sw.service.Transition(ctx, id, lifecycle.StatusCompleted, actor, "auto-completed after delivery grace period")
		if err != nil {
			// Another writer may have completed or flagged it first.
			if errors.Is(err, lifecycle.ErrAlreadyTerminal) || errors.Is(err, lifecycle.ErrIllegalTransition) {
				continue
			}
			log.Printf("Sweeper failed to complete donation %s: %v", id, err)
		}
	}
}
