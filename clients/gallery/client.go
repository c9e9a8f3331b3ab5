// Package gallery is the HTTP adapter for the Gallery service. Every call
// is scoped by tenant id and bounded by a per-call timeout; failures are
// returned to the caller, never retried here.
package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Group is a normalized gallery group.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Images      []Image   `json:"images"`
}

// Image is one image entry inside a group.
type Image struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// StatusError reports a non-success HTTP status from the Gallery service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gallery service returned status %d", e.Code)
}

// Client calls the Gallery service.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Gallery client. timeout bounds every call.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// ListGroups returns the tenant's gallery groups.
func (c *Client) ListGroups(ctx context.Context, tenantID uuid.UUID) ([]Group, error) {
	query := url.Values{"tenant_id": {tenantID.String()}}
	var groups []Group
	if err := c.get(ctx, "/api/v1/groups", query, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup returns one group with its images.
func (c *Client) GetGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*Group, error) {
	query := url.Values{"tenant_id": {tenantID.String()}}
	var group Group
	if err := c.get(ctx, "/api/v1/groups/"+groupID.String(), query, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create gallery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Gallery request failed",
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("gallery request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Gallery returned non-success status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode gallery response %s: %w", path, err)
	}
	return nil
}
