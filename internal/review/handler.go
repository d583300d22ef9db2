// internal/review/handler.go
package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
	"foodshare/internal/users"
)

// UserDirectory resolves the caller's account for the review routes.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

type Handler struct {
	service Service
	users   UserDirectory
}

func NewHandler(service Service, users UserDirectory) *Handler {
	return &Handler{service: service, users: users}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	donationID, err := uuid.Parse(chi.URLParam(r, "donationID"))
	if err != nil {
		http.Error(w, "invalid donation ID", http.StatusBadRequest)
		return
	}

	raw := r.Header.Get("X-User-ID")
	userID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "missing or invalid X-User-ID header", http.StatusUnauthorized)
		return
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return
	}

	var input CreateReviewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor := lifecycle.Actor{ID: user.ID, Role: user.Role}
	review, err := h.service.CreateReview(r.Context(), donationID, actor, input)
	if err != nil {
		http.Error(w, err.Error(), reviewStatusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(review)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	donationID, err := uuid.Parse(chi.URLParam(r, "donationID"))
	if err != nil {
		http.Error(w, "invalid donation ID", http.StatusBadRequest)
		return
	}

	reviews, err := h.service.ListForDonation(r.Context(), donationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reviews == nil {
		reviews = []*Review{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reviews)
}

func reviewStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotReviewable):
		return http.StatusConflict
	case errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicateReview):
		return http.StatusConflict
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
