// internal/clients/roster_client.go
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RosterClient looks up an actor's faction from the member roster service.
type RosterClient struct {
	baseURL string
	client  *http.Client
}

func NewRosterClient(baseURL string, timeout time.Duration) *RosterClient {
	return &RosterClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type member struct {
	ID      string `json:"id"`
	Faction string `json:"faction"`
}

// Faction returns the actor's faction, or "" if the roster does not know the actor.
func (c *RosterClient) Faction(ctx context.Context, actorID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/members/%s", c.baseURL, url.PathEscape(actorID)), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var m member
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return "", err
	}

	return m.Faction, nil
}
