// internal/clients/users_client.go
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"foodshare/internal/users"
)

// UsersClient resolves accounts from the users service. The donations
// service uses it to turn an X-User-ID header into an actor with a
// trusted role.
type UsersClient struct {
	baseURL string
}

func NewUsersClient(baseURL string) *UsersClient {
	return &UsersClient{baseURL: baseURL}
}

func (c *UsersClient) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var user users.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
