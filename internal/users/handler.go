// internal/users/handler.go
package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/users", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Get("/users/{userID}", h.HandleGetUser)
	r.Put("/users/{userID}/role", h.HandleChangeRole)
	return r
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string         `json:"email"`
		Name     string         `json:"name"`
		Password string         `json:"password"`
		Role     lifecycle.Role `json:"role"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(user)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(user)
}

// caller authenticates the request from the X-User-ID header and looks
// the account up so the role comes from storage, not the request.
func (h *Handler) caller(r *http.Request) (*User, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return nil, errors.New("missing X-User-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("invalid X-User-ID header")
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		return nil, errors.New("unknown user")
	}
	return user, nil
}

func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if caller.Role != lifecycle.RoleAdmin {
		http.Error(w, "admin role required", http.StatusForbidden)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Role lifecycle.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.ChangeRole(r.Context(), id, req.Role); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
