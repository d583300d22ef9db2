// internal/users/handler_test.go
package users_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/internal/lifecycle"
	"foodshare/internal/users"
)

type fakeService struct {
	accounts    map[uuid.UUID]lifecycle.Role
	changedID   uuid.UUID
	changedRole lifecycle.Role
}

func (f *fakeService) Register(ctx context.Context, email, name, password string, role lifecycle.Role) (*users.User, error) {
	return &users.User{ID: uuid.New(), Email: email, Name: name, Role: role}, nil
}

func (f *fakeService) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	return nil, fmt.Errorf("invalid credentials")
}

func (f *fakeService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	role, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s not found", id)
	}
	return &users.User{ID: id, Role: role}, nil
}

func (f *fakeService) ChangeRole(ctx context.Context, id uuid.UUID, newRole lifecycle.Role) error {
	f.changedID = id
	f.changedRole = newRole
	return nil
}

func changeRoleRequest(targetID uuid.UUID) *http.Request {
	path := fmt.Sprintf("/users/%s/role", targetID)
	return httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"role":"admin"}`))
}

func TestHandleChangeRoleRequiresAuthentication(t *testing.T) {
	target := uuid.New()
	svc := &fakeService{accounts: map[uuid.UUID]lifecycle.Role{target: lifecycle.RoleBeneficiary}}
	handler := users.NewHandler(svc)

	req := changeRoleRequest(target)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, uuid.Nil, svc.changedID, "role change must not reach the service")
}

func TestHandleChangeRoleRejectsNonAdmins(t *testing.T) {
	target := uuid.New()
	for _, role := range []lifecycle.Role{lifecycle.RoleDonor, lifecycle.RoleBeneficiary, lifecycle.RoleNGO} {
		callerID := uuid.New()
		svc := &fakeService{accounts: map[uuid.UUID]lifecycle.Role{
			callerID: role,
			target:   lifecycle.RoleBeneficiary,
		}}
		handler := users.NewHandler(svc)

		req := changeRoleRequest(target)
		req.Header.Set("X-User-ID", callerID.String())
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
		assert.Equal(t, uuid.Nil, svc.changedID, "role %s must not promote anyone", role)
	}
}

func TestHandleChangeRoleRejectsSelfPromotion(t *testing.T) {
	// A non-admin naming themselves as both caller and target gets the
	// same refusal as any other caller.
	callerID := uuid.New()
	svc := &fakeService{accounts: map[uuid.UUID]lifecycle.Role{callerID: lifecycle.RoleDonor}}
	handler := users.NewHandler(svc)

	req := changeRoleRequest(callerID)
	req.Header.Set("X-User-ID", callerID.String())
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, uuid.Nil, svc.changedID)
}

func TestHandleChangeRoleAllowsAdmins(t *testing.T) {
	adminID := uuid.New()
	target := uuid.New()
	svc := &fakeService{accounts: map[uuid.UUID]lifecycle.Role{
		adminID: lifecycle.RoleAdmin,
		target:  lifecycle.RoleBeneficiary,
	}}
	handler := users.NewHandler(svc)

	req := changeRoleRequest(target)
	req.Header.Set("X-User-ID", adminID.String())
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, target, svc.changedID)
	assert.Equal(t, lifecycle.RoleAdmin, svc.changedRole)
}
