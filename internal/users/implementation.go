// internal/users/implementation.go
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"foodshare/internal/lifecycle"
	"foodshare/pkg/eventstore"
)

var tracer = otel.Tracer("foodshare/users")

// service implements the Service interface.
type service struct {
	eventStore  *eventstore.EventStore
	db          *sql.DB
	rateLimiter *rate.Limiter
}

// NewService creates a new users service instance.
func NewService(es *eventstore.EventStore, db *sql.DB) Service {
	return &service{
		eventStore:  es,
		db:          db,
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
	}
}

// Register creates a new user account.
func (s *service) Register(ctx context.Context, email, name, password string, role lifecycle.Role) (*User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if !lifecycle.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if role == lifecycle.RoleAdmin {
		return nil, fmt.Errorf("admin accounts cannot self-register")
	}

	id := uuid.New()
	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	eventData := UserRegisteredEvent{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  role,
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: eventstore.AggregateUser,
		EventType:     "UserRegistered",
		EventData:     jsonData,
		Version:       1,
	}

	if err := s.eventStore.AppendEvents(ctx, id, eventstore.AggregateUser, 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	user := &User{
		ID:     id,
		Email:  email,
		Name:   name,
		Role:   role,
		Status: "active",
	}
	credential := &Credential{
		UserID:       id,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	if err := s.insertUserIntoReadModel(ctx, user, credential); err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	return user, nil
}

func (s *service) insertUserIntoReadModel(ctx context.Context, user *User, credential *Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	userQuery := `
		INSERT INTO users (id, email, name, role, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.ExecContext(ctx, userQuery, user.ID, user.Email, user.Name, user.Role, user.Status)
	if err != nil {
		return err
	}

	credQuery := `
		INSERT INTO credentials (user_id, password_hash, salt)
		VALUES ($1, $2, $3)
	`
	_, err = tx.ExecContext(ctx, credQuery, credential.UserID, credential.PasswordHash, credential.Salt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Authenticate verifies a user's credentials and returns the user if successful.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Authenticate")
	defer span.End()

	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	credential, err := s.getCredentialByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(password, credential.Salt, credential.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("authentication failed: invalid credentials")
	}

	return user, nil
}

func (s *service) getUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, name, role, status, version
		FROM users
		WHERE email = $1
	`
	user := &User{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Status,
		&user.Version,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) getCredentialByUserID(ctx context.Context, userID uuid.UUID) (*Credential, error) {
	query := `
		SELECT user_id, password_hash, salt
		FROM credentials
		WHERE user_id = $1
	`
	credential := &Credential{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&credential.UserID,
		&credential.PasswordHash,
		&credential.Salt,
	)
	if err != nil {
		return nil, err
	}
	return credential, nil
}

// GetUser retrieves a user by their ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	ctx, span := tracer.Start(ctx, "UserService.GetUser")
	defer span.End()

	query := `
		SELECT id, email, name, role, status, version
		FROM users
		WHERE id = $1
	`
	user := &User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Status,
		&user.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get user from read model: %w", err)
	}

	return user, nil
}

// ChangeRole updates a user's role.
func (s *service) ChangeRole(ctx context.Context, id uuid.UUID, newRole lifecycle.Role) error {
	ctx, span := tracer.Start(ctx, "UserService.ChangeRole")
	defer span.End()

	if !lifecycle.ValidRole(newRole) {
		return fmt.Errorf("invalid role %q", newRole)
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	eventData := UserRoleChangedEvent{
		ID:      id,
		NewRole: newRole,
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: eventstore.AggregateUser,
		EventType:     "UserRoleChanged",
		EventData:     jsonData,
		Version:       user.Version + 1,
	}

	if err := s.eventStore.AppendEvents(ctx, id, eventstore.AggregateUser, user.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE users
		SET role = $1, version = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err = s.db.ExecContext(ctx, query, newRole, user.Version+1, id)
	return err
}
