// Package directory resolves users against the identity provider's admin
// API. Assignment and grant commands need the person's details, groups and
// organisation at decision time; resolution failures surface as (nil, nil)
// so the aggregates can reject with their own events.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/caseaccessio/api/internal/app"
	"github.com/caseaccessio/api/pkg/domain/shared"
	"github.com/caseaccessio/api/pkg/logger"
)

// ErrUnavailable is returned when the identity provider cannot be reached or
// answers with a server error.
var ErrUnavailable = errors.New("identity provider unavailable")

// Config holds configuration for the directory client.
type Config struct {
	BaseURL     string
	APIToken    string
	HTTPTimeout time.Duration
}

// Client is an identity-provider admin API client implementing app.Directory.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	cache      Cache
	log        *logger.Logger
}

// Cache stores resolved users for a short TTL so bursts of commands for the
// same person do not hammer the provider. A nil cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string) (*app.DirectoryUser, bool)
	Set(ctx context.Context, key string, user *app.DirectoryUser)
}

// New creates a directory client.
func New(cfg Config, cache Cache, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: directory base URL is required", shared.ErrValidation)
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		cache:      cache,
		log:        log.With("component", "directory"),
	}, nil
}

// userPayload is the provider's user representation. Organisation membership
// arrives as single-valued attributes.
type userPayload struct {
	ID         string              `json:"id"`
	Email      string              `json:"email"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	Groups     []string            `json:"groups"`
	Attributes map[string][]string `json:"attributes"`
}

// FindByEmail implements app.Directory.
func (c *Client) FindByEmail(ctx context.Context, email string) (*app.DirectoryUser, error) {
	if email == "" {
		return nil, nil
	}
	if user, ok := c.cacheGet(ctx, "email:"+email); ok {
		return user, nil
	}

	endpoint := c.baseURL + "/users?exact=true&email=" + url.QueryEscape(email)
	var payloads []userPayload
	if err := c.get(ctx, endpoint, &payloads); err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, nil
	}

	user, err := c.toUser(payloads[0])
	if err != nil {
		return nil, err
	}
	c.cacheSet(ctx, "email:"+email, user)
	return user, nil
}

// FindByID implements app.Directory.
func (c *Client) FindByID(ctx context.Context, userID shared.ID) (*app.DirectoryUser, error) {
	if userID.IsZero() {
		return nil, nil
	}
	if user, ok := c.cacheGet(ctx, "id:"+userID.String()); ok {
		return user, nil
	}

	endpoint := c.baseURL + "/users/" + url.PathEscape(userID.String())
	var payload userPayload
	err := c.get(ctx, endpoint, &payload)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user, err := c.toUser(payload)
	if err != nil {
		return nil, err
	}
	c.cacheSet(ctx, "id:"+userID.String(), user)
	return user, nil
}

var errNotFound = errors.New("not found")

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", err)
	}
	return nil
}

func (c *Client) toUser(p userPayload) (*app.DirectoryUser, error) {
	userID, err := shared.IDFromString(p.ID)
	if err != nil {
		return nil, fmt.Errorf("directory user id %q: %w", p.ID, err)
	}
	user := &app.DirectoryUser{
		Details: shared.PersonDetails{
			UserID:    userID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
		},
		Email:  p.Email,
		Groups: p.Groups,
	}

	if orgIDs := p.Attributes["organisationId"]; len(orgIDs) > 0 {
		orgID, err := shared.IDFromString(orgIDs[0])
		if err != nil {
			// A malformed organisation attribute degrades to no organisation
			// rather than failing the whole lookup.
			c.log.Warn("ignoring malformed organisation attribute",
				"user_id", p.ID, "organisation_id", orgIDs[0])
			return user, nil
		}
		org := shared.Organisation{ID: orgID}
		if names := p.Attributes["organisationName"]; len(names) > 0 {
			org.Name = names[0]
		}
		user.Organisation = &org
	}
	return user, nil
}

func (c *Client) cacheGet(ctx context.Context, key string) (*app.DirectoryUser, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(ctx, key)
}

func (c *Client) cacheSet(ctx context.Context, key string, user *app.DirectoryUser) {
	if c.cache == nil {
		return
	}
	c.cache.Set(ctx, key, user)
}
