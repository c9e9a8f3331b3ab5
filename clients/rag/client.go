// Package rag is the HTTP adapter for the RAG document service.
package rag

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

// Document is a normalized RAG document. ContentMD is only populated by
// GetDocument.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ContentMD string    `json:"content_md"`
}

// StatusError reports a non-success HTTP status from the RAG service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rag service returned status %d", e.Code)
}

// Client calls the RAG service.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a RAG client. timeout bounds every call; search over large
// document sets is the slow path, so it is usually configured longer than
// the gallery timeout.
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

// ListDocuments returns the tenant's documents without content.
func (c *Client) ListDocuments(ctx context.Context, tenantID uuid.UUID) ([]Document, error) {
	query := url.Values{"tenant_id": {tenantID.String()}}
	var docs []Document
	if err := c.get(ctx, "/api/v1/documents", query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument returns one document with its markdown content.
func (c *Client) GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*Document, error) {
	query := url.Values{"tenant_id": {tenantID.String()}}
	var doc Document
	if err := c.get(ctx, "/api/v1/documents/"+documentID.String(), query, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Search returns documents ranked against the query.
func (c *Client) Search(ctx context.Context, tenantID uuid.UUID, queryText string) ([]Document, error) {
	query := url.Values{
		"tenant_id": {tenantID.String()},
		"q":         {queryText},
	}
	var docs []Document
	if err := c.get(ctx, "/api/v1/documents/search", query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
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
		return fmt.Errorf("create rag request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("RAG request failed",
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("rag request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("RAG returned non-success status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode rag response %s: %w", path, err)
	}
	return nil
}
