// Package llm is the boundary to the LLM completion service. The executor
// core only depends on the Streamer interface; the concrete client speaks
// the service's submit-then-subscribe protocol: a turn is POSTed once and
// its fragments are consumed from a per-completion SSE stream.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	"gopkg.in/cenkalti/backoff.v1"
)

// Message is one prior conversation entry. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Streamer yields an agent reply as an incremental sequence of text
// fragments. The fragment channel closes after the last fragment; a
// failure to produce the reply is delivered on the error channel.
type Streamer interface {
	Stream(ctx context.Context, system string, history []Message) (<-chan string, <-chan error)
	// Once returns the whole reply at once, for non-streaming callers.
	Once(ctx context.Context, system string, history []Message) (string, error)
}

var _ Streamer = (*Client)(nil)

// Client implements Streamer over the completion service HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an LLM client.
func New(baseURL, apiKey, model string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

type completionRequest struct {
	Model    string    `json:"model"`
	System   string    `json:"system"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type completionSubmitted struct {
	ID        string `json:"id"`
	StreamURL string `json:"stream_url"`
	Text      string `json:"text"`
}

type streamDelta struct {
	Delta string `json:"delta"`
}

// doneSentinel terminates a completion stream.
const doneSentinel = "[DONE]"

// Stream submits the turn and forwards SSE fragments until the service
// sends its done sentinel or ctx is cancelled. Reconnects are handled by
// the SSE client with exponential backoff; they happen before fragments
// start flowing, so a reply never restarts mid-stream.
func (c *Client) Stream(ctx context.Context, system string, history []Message) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errs := make(chan error, 1)

	submitted, err := c.submit(ctx, system, history, true)
	if err != nil {
		errs <- err
		close(out)
		return out, errs
	}

	streamURL := submitted.StreamURL
	if strings.HasPrefix(streamURL, "/") {
		streamURL = c.baseURL + streamURL
	}
	logger := c.logger.With(zap.String("completionID", submitted.ID))

	sseClient := sse.NewClient(streamURL)
	sseClient.Headers = map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
	if c.apiKey != "" {
		sseClient.Headers["Authorization"] = "Bearer " + c.apiKey
	}

	sseCtx, sseCancel := context.WithCancel(ctx)
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 30 * time.Second
	sseClient.ReconnectStrategy = backoff.WithContext(expBackoff, sseCtx)
	sseClient.ReconnectNotify = func(err error, delay time.Duration) {
		logger.Warn("Completion stream reconnecting", zap.Error(err), zap.Duration("delay", delay))
	}

	events := make(chan *sse.Event, 16)
	if err := sseClient.SubscribeChanWithContext(sseCtx, "", events); err != nil {
		sseCancel()
		errs <- fmt.Errorf("subscribe completion stream: %w", err)
		close(out)
		return out, errs
	}

	go func() {
		defer close(out)
		defer sseCancel()
		defer sseClient.Unsubscribe(events)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					errs <- fmt.Errorf("completion stream closed before done sentinel")
					return
				}
				data := string(event.Data)
				if data == "" {
					continue
				}
				if data == doneSentinel {
					logger.Debug("Completion stream finished")
					return
				}
				var delta streamDelta
				if err := json.Unmarshal(event.Data, &delta); err != nil {
					logger.Warn("Skipping malformed stream event", zap.Error(err))
					continue
				}
				if delta.Delta == "" {
					continue
				}
				select {
				case out <- delta.Delta:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errs
}

// Once submits the turn without streaming and returns the full reply text.
func (c *Client) Once(ctx context.Context, system string, history []Message) (string, error) {
	resp, err := c.submit(ctx, system, history, false)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) submit(ctx context.Context, system string, history []Message, stream bool) (*completionSubmitted, error) {
	payload, err := json.Marshal(completionRequest{
		Model:    c.model,
		System:   system,
		Messages: history,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Completion service returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var submitted completionSubmitted
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	return &submitted, nil
}
