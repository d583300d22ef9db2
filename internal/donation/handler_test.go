// internal/donation/handler_test.go
package donation_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/internal/donation"
	"foodshare/internal/lifecycle"
	"foodshare/internal/users"
)

type fakeDirectory struct {
	accounts map[uuid.UUID]lifecycle.Role
}

func (f *fakeDirectory) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	role, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s not found", id)
	}
	return &users.User{ID: id, Role: role}, nil
}

type fakeService struct {
	donation       *lifecycle.Donation
	transitionErr  error
	lastTarget     lifecycle.Status
	lastActor      lifecycle.Actor
	createdInput   donation.CreateDonationInput
	createdDonorID uuid.UUID
}

func (f *fakeService) CreateDonation(ctx context.Context, donorID uuid.UUID, input donation.CreateDonationInput) (*lifecycle.Donation, error) {
	f.createdDonorID = donorID
	f.createdInput = input
	return f.donation, nil
}

func (f *fakeService) GetDonation(ctx context.Context, id uuid.UUID) (*lifecycle.Donation, error) {
	if f.donation == nil {
		return nil, fmt.Errorf("donation with ID %s not found", id)
	}
	return f.donation, nil
}

func (f *fakeService) ListDonations(ctx context.Context, filter donation.ListFilter) ([]*lifecycle.Donation, error) {
	return nil, nil
}

func (f *fakeService) Transition(ctx context.Context, donationID uuid.UUID, target lifecycle.Status, actor lifecycle.Actor, note string) (*lifecycle.Donation, error) {
	f.lastTarget = target
	f.lastActor = actor
	if f.transitionErr != nil {
		return nil, f.transitionErr
	}
	return f.donation, nil
}

func (f *fakeService) Flag(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor, reason string) (*lifecycle.Donation, error) {
	return f.donation, f.transitionErr
}

func (f *fakeService) ClearFlag(ctx context.Context, donationID uuid.UUID, actor lifecycle.Actor) (*lifecycle.Donation, error) {
	return f.donation, f.transitionErr
}

func TestHandleCreateRejectsNonDonors(t *testing.T) {
	// Posting a donation is a donor action; even admins moderate, they
	// do not donate on someone's behalf.
	for _, role := range []lifecycle.Role{lifecycle.RoleBeneficiary, lifecycle.RoleNGO, lifecycle.RoleAdmin} {
		callerID := uuid.New()
		directory := &fakeDirectory{accounts: map[uuid.UUID]lifecycle.Role{callerID: role}}
		handler := donation.NewHandler(&fakeService{}, directory, nil)

		body := `{"title":"Surplus rice","category":"grains","quantity":5,"unit":"kg","expires_at":"2030-01-01T00:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/donations", strings.NewReader(body))
		req.Header.Set("X-User-ID", callerID.String())
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
	}
}

func TestHandleCreateRequiresKnownUser(t *testing.T) {
	handler := donation.NewHandler(&fakeService{}, &fakeDirectory{accounts: map[uuid.UUID]lifecycle.Role{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/donations", strings.NewReader(`{}`))
	req.Header.Set("X-User-ID", uuid.New().String())
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleClaimUsesDirectoryRole(t *testing.T) {
	ngoID := uuid.New()
	directory := &fakeDirectory{accounts: map[uuid.UUID]lifecycle.Role{ngoID: lifecycle.RoleNGO}}

	d := &lifecycle.Donation{ID: uuid.New(), Status: lifecycle.StatusAccepted, Version: 2}
	svc := &fakeService{donation: d}
	handler := donation.NewHandler(svc, directory, nil)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/donations/%s/claim", d.ID), nil)
	req.Header.Set("X-User-ID", ngoID.String())
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, lifecycle.StatusAccepted, svc.lastTarget)
	assert.Equal(t, lifecycle.Actor{ID: ngoID, Role: lifecycle.RoleNGO}, svc.lastActor)

	var got lifecycle.Donation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, d.ID, got.ID)
}

func TestHandleTransitionMapsEngineErrors(t *testing.T) {
	donorID := uuid.New()
	directory := &fakeDirectory{accounts: map[uuid.UUID]lifecycle.Role{donorID: lifecycle.RoleDonor}}

	cases := []struct {
		err  error
		code int
	}{
		{lifecycle.ErrIllegalTransition, http.StatusConflict},
		{lifecycle.ErrUnauthorizedRole, http.StatusForbidden},
		{lifecycle.ErrNotOwner, http.StatusForbidden},
		{lifecycle.ErrMissingAssignment, http.StatusUnprocessableEntity},
		{lifecycle.ErrAlreadyTerminal, http.StatusConflict},
	}

	for _, tc := range cases {
		svc := &fakeService{transitionErr: fmt.Errorf("cannot transition: %w", tc.err)}
		handler := donation.NewHandler(svc, directory, nil)

		body := `{"target":"delivered"}`
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/donations/%s/transition", uuid.New()), strings.NewReader(body))
		req.Header.Set("X-User-ID", donorID.String())
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestHandleStatsRequiresAdmin(t *testing.T) {
	donorID := uuid.New()
	directory := &fakeDirectory{accounts: map[uuid.UUID]lifecycle.Role{donorID: lifecycle.RoleDonor}}
	handler := donation.NewHandler(&fakeService{}, directory, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("X-User-ID", donorID.String())
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleGetReportsExpiredStatus(t *testing.T) {
	// The service derives expiry; the handler just relays it.
	d := &lifecycle.Donation{
		ID:        uuid.New(),
		Status:    lifecycle.StatusExpired,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	handler := donation.NewHandler(&fakeService{donation: d}, &fakeDirectory{}, nil)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/donations/%s", d.ID), nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got lifecycle.Donation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, lifecycle.StatusExpired, got.Status)
}
