package user

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// IdentityClient reads users from the identity provider's backend API.
type IdentityClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewIdentityClient(baseURL, secretKey string) *IdentityClient {
	return &IdentityClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchUser loads the provider profile for externalID.
func (c *IdentityClient) FetchUser(ctx context.Context, externalID string) (Profile, error) {
	endpoint := c.baseURL + "/v1/users/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch identity user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Profile{}, fmt.Errorf("fetch identity user: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var u clerkUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return Profile{}, fmt.Errorf("decode identity user: %w", err)
	}
	if u.ID == "" {
		u.ID = externalID
	}
	return u.profile(), nil
}
