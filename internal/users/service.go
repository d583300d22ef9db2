// internal/users/service.go
package users

import (
	"context"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// Service defines the interface for the users service.
type Service interface {
	Register(ctx context.Context, email, name, password string, role lifecycle.Role) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ChangeRole(ctx context.Context, id uuid.UUID, newRole lifecycle.Role) error
}
