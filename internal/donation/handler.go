// internal/donation/handler.go
package donation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
	"foodshare/internal/stats"
	"foodshare/internal/users"
	"foodshare/pkg/eventstore"
)

// UserDirectory resolves the caller's account so the handler can build
// an actor with a role the caller cannot forge.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

type Handler struct {
	service Service
	users   UserDirectory
	stats   *stats.Sink
}

func NewHandler(service Service, users UserDirectory, stats *stats.Sink) *Handler {
	return &Handler{service: service, users: users, stats: stats}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/donations", h.HandleCreate)
	r.Get("/donations", h.HandleList)
	r.Get("/donations/{donationID}", h.HandleGet)
	r.Post("/donations/{donationID}/claim", h.HandleClaim)
	r.Post("/donations/{donationID}/transition", h.HandleTransition)
	r.Post("/donations/{donationID}/flag", h.HandleFlag)
	r.Post("/donations/{donationID}/clear-flag", h.HandleClearFlag)
	r.Get("/stats", h.HandleStats)
	return r
}

// actor authenticates the request from the X-User-ID header and looks
// the account up so the role comes from the users service, not the
// request body.
func (h *Handler) actor(r *http.Request) (lifecycle.Actor, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return lifecycle.Actor{}, errors.New("missing X-User-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return lifecycle.Actor{}, errors.New("invalid X-User-ID header")
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		return lifecycle.Actor{}, errors.New("unknown user")
	}
	return lifecycle.Actor{ID: user.ID, Role: user.Role}, nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if actor.Role != lifecycle.RoleDonor {
		http.Error(w, "only donors can post donations", http.StatusForbidden)
		return
	}

	var input CreateDonationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.service.CreateDonation(r.Context(), actor.ID, input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(d)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		Status:   lifecycle.Status(q.Get("status")),
		Category: q.Get("category"),
	}
	if q.Get("mine") == "true" {
		filter.UserID = actor.ID
	}
	if raw := q.Get("donor_id"); raw != "" {
		donorID, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid donor_id", http.StatusBadRequest)
			return
		}
		filter.DonorID = donorID
	}
	if raw := q.Get("cursor"); raw != "" {
		cursor, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		filter.Cursor = cursor
	}

	donations, err := h.service.ListDonations(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if donations == nil {
		donations = []*lifecycle.Donation{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(donations)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "donationID"))
	if err != nil {
		http.Error(w, "invalid donation ID", http.StatusBadRequest)
		return
	}

	d, err := h.service.GetDonation(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*lifecycle.Donation, error) {
		return h.service.Transition(ctx, id, lifecycle.StatusAccepted, actor, "")
	})
}

func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target lifecycle.Status `json:"target"`
		Note   string           `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.runTransition(w, r, func(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*lifecycle.Donation, error) {
		return h.service.Transition(ctx, id, req.Target, actor, req.Note)
	})
}

func (h *Handler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.runTransition(w, r, func(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*lifecycle.Donation, error) {
		return h.service.Flag(ctx, id, actor, req.Reason)
	})
}

func (h *Handler) HandleClearFlag(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, func(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*lifecycle.Donation, error) {
		return h.service.ClearFlag(ctx, id, actor)
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if actor.Role != lifecycle.RoleAdmin {
		http.Error(w, "admin role required", http.StatusForbidden)
		return
	}
	if h.stats == nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}

	totals, err := h.stats.Totals(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(totals)
}

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, lifecycle.Actor) (*lifecycle.Donation, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "donationID"))
	if err != nil {
		http.Error(w, "invalid donation ID", http.StatusBadRequest)
		return
	}

	actor, err := h.actor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	d, err := fn(r.Context(), id, actor)
	if err != nil {
		http.Error(w, err.Error(), transitionStatusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

func transitionStatusCode(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrUnauthorizedRole), errors.Is(err, lifecycle.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrIllegalTransition), errors.Is(err, lifecycle.ErrAlreadyTerminal):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrMissingAssignment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		return http.StatusConflict
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
