// internal/users/domain.go
package users

import (
	"time"

	"github.com/google/uuid"

	"foodshare/internal/lifecycle"
)

// User represents a platform account. Role decides which lifecycle
// transitions the account may drive.
type User struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Role      lifecycle.Role `json:"role"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   int            `json:"version"`
}

// Credential represents a user's login credentials.
type Credential struct {
	UserID       uuid.UUID `json:"user_id"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
}

// UserRegisteredEvent is published when a new user registers.
type UserRegisteredEvent struct {
	ID    uuid.UUID      `json:"id"`
	Email string         `json:"email"`
	Name  string         `json:"name"`
	Role  lifecycle.Role `json:"role"`
}

// UserRoleChangedEvent is published when an admin changes a user's role.
type UserRoleChangedEvent struct {
	ID      uuid.UUID      `json:"id"`
	NewRole lifecycle.Role `json:"new_role"`
}
