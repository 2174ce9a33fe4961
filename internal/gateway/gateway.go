// Package gateway wraps the upstream DAQ API with a typed HTTP client.
// It performs no retries; resilience is the caller's responsibility.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrGatewayTimeout marks an upstream call that timed out, either reported
// by the upstream as 504 or hit our own client deadline. The status poller
// treats this class as expected noise and swallows it.
var ErrGatewayTimeout = errors.New("gateway timeout")

// APIError is a non-2xx response from the upstream DAQ API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daq api returned %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for the upstream DAQ API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a gateway client for the given base URL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListClients returns all known DAQ supervisor nodes.
func (c *Client) ListClients(ctx context.Context) ([]ClientInfo, error) {
	var clients []ClientInfo
	if err := c.do(ctx, http.MethodGet, "/clients", nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Status returns the structured status payload for one client.
func (c *Client) Status(ctx context.Context, clientID string) (*ClientStatus, error) {
	var status ClientStatus
	if err := c.do(ctx, http.MethodGet, c.clientPath(clientID, "status"), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Logs returns recent log entries for one client.
func (c *Client) Logs(ctx context.Context, clientID string) ([]LogEntry, error) {
	var logs []LogEntry
	if err := c.do(ctx, http.MethodGet, c.clientPath(clientID, "logs"), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Restart restarts the DAQ supervisor process on a client.
func (c *Client) Restart(ctx context.Context, clientID string) error {
	return c.do(ctx, http.MethodPost, c.clientPath(clientID, "restart"), nil, nil)
}

// StopAll stops every running DAQ job on a client.
func (c *Client) StopAll(ctx context.Context, clientID string) error {
	return c.do(ctx, http.MethodPost, c.clientPath(clientID, "stop-all"), nil, nil)
}

// RunJob launches a custom DAQ job from a rendered configuration string.
func (c *Client) RunJob(ctx context.Context, clientID, configText string) (*RunJobResult, error) {
	body := map[string]string{"config": configText}
	var result RunJobResult
	if err := c.do(ctx, http.MethodPost, c.clientPath(clientID, "run"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StopJob stops one DAQ job by its unique id. When remove is true the job
// is also removed from the supervisor's job table.
func (c *Client) StopJob(ctx context.Context, clientID, jobUID string, remove bool) error {
	body := map[string]any{"uid": jobUID, "remove": remove}
	return c.do(ctx, http.MethodPost, c.clientPath(clientID, "stop"), body, nil)
}

// SendMessage delivers a message to a client. A nil targetUID broadcasts
// to every job on the client.
func (c *Client) SendMessage(ctx context.Context, clientID, msgType string, payload json.RawMessage, targetUID *string) error {
	body := map[string]any{
		"type":    msgType,
		"payload": payload,
	}
	if targetUID != nil {
		body["target_uid"] = *targetUID
	}
	return c.do(ctx, http.MethodPost, c.clientPath(clientID, "message"), body, nil)
}

// JobSchemas returns the JSON schemas for the DAQ job types a client supports.
func (c *Client) JobSchemas(ctx context.Context, clientID string) (json.RawMessage, error) {
	var schemas json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.clientPath(clientID, "schemas/jobs"), nil, &schemas); err != nil {
		return nil, err
	}
	return schemas, nil
}

// MessageSchemas returns the JSON schemas for the message types a client supports.
func (c *Client) MessageSchemas(ctx context.Context, clientID string) (json.RawMessage, error) {
	var schemas json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.clientPath(clientID, "schemas/messages"), nil, &schemas); err != nil {
		return nil, err
	}
	return schemas, nil
}

func (c *Client) clientPath(clientID, op string) string {
	return fmt.Sprintf("/clients/%s/%s", url.PathEscape(clientID), op)
}

// do performs one request against the upstream and decodes the JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s %s: %w", method, path, ErrGatewayTimeout)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGatewayTimeout {
		return fmt.Errorf("%s %s: %w", method, path, ErrGatewayTimeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
