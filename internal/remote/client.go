// Package remote implements the client for the hosted record store. All
// application components talk to the store through one explicitly
// constructed Client; requests are rate limited so gallery paging cannot
// hammer the hosted API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/picvault/picvault/internal/models"
)

// Collection names on the remote store.
const (
	CollectionContents    = "contents"
	CollectionSets        = "contents_sets"
	CollectionCollections = "contents_collections"
	CollectionLikes       = "users_likes"
	CollectionUploaders   = "uploaders"
	CollectionIdols       = "groups_idols"
	CollectionGroups      = "groups"
	CollectionTags        = "tags"
	CollectionFilters     = "users_filters"
	CollectionUsers       = "users"
)

const userAgent = "picvault/1.0"

// fullListBatch is the page size used when draining a collection.
const fullListBatch = 200

// APIError is a non-2xx response from the remote store.
type APIError struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API error %d: %s", e.Status, e.Message)
}

// ListOptions are the per-call query knobs every record operation accepts.
type ListOptions struct {
	Sort   string
	Filter string
	Expand string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Filter != "" {
		q.Set("filter", o.Filter)
	}
	if o.Expand != "" {
		q.Set("expand", o.Expand)
	}
	return q
}

// Client is the handle to the remote record store. It carries the auth token
// for the current session and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu        sync.RWMutex
	token     string
	authModel *models.User
}

// New creates a client for the store at baseURL. requestsPerSecond and burst
// bound the outbound request rate.
func New(baseURL string, requestsPerSecond float64, burst int) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// AuthToken returns the current session token, or empty when signed out.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// AuthUser returns the authenticated user record, or nil when signed out.
func (c *Client) AuthUser() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authModel
}

// AuthValid reports whether the client holds an authenticated session.
func (c *Client) AuthValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != "" && c.authModel != nil
}

// ClearAuth drops the current session.
func (c *Client) ClearAuth() {
	c.mu.Lock()
	c.token = ""
	c.authModel = nil
	c.mu.Unlock()
}

// authResponse is the wire shape of a successful password auth call.
type authResponse struct {
	Token  string      `json:"token"`
	Record models.User `json:"record"`
}

// AuthWithPassword signs in against the users collection and stores the
// session token on the client.
func (c *Client) AuthWithPassword(ctx context.Context, identity, password string) (*models.User, error) {
	body := map[string]string{
		"identity": identity,
		"password": password,
	}

	var resp authResponse
	path := fmt.Sprintf("/api/collections/%s/auth-with-password", CollectionUsers)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.authModel = &resp.Record
	c.mu.Unlock()

	log.Debugf("Authenticated as user %s", resp.Record.ID)
	return c.AuthUser(), nil
}

// Delete removes a record from a collection.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	path := fmt.Sprintf("/api/collections/%s/records/%s", collection, url.PathEscape(id))
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete record %s/%s: %w", collection, id, err)
	}
	return nil
}

// do performs one rate-limited HTTP call. out, when non-nil, receives the
// decoded JSON response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AuthToken(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
		var wire struct {
			Message string         `json:"message"`
			Data    map[string]any `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&wire); err == nil && wire.Message != "" {
			apiErr.Message = wire.Message
			apiErr.Data = wire.Data
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
