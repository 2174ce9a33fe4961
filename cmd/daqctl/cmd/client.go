package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"daqpanel/pkg/api"

	"github.com/spf13/viper"
)

// PanelClient handles API calls to the panel server.
type PanelClient struct {
	BaseURL    string
	User       string
	Groups     string
	HTTPClient *http.Client
}

// NewPanelClient builds a client from the resolved viper configuration.
func NewPanelClient() *PanelClient {
	return &PanelClient{
		BaseURL: viper.GetString("url"),
		User:    viper.GetString("user"),
		Groups:  viper.GetString("groups"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the panel.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// do sends one request and decodes the JSON response into out (unless nil).
// The identity headers are only set when the CLI talks to the panel
// directly; behind the auth proxy they are stripped and re-asserted.
func (c *PanelClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	if c.User != "" {
		req.Header.Add("X-Auth-Request-User", c.User)
	}
	if c.Groups != "" {
		req.Header.Add("X-Auth-Request-Groups", c.Groups)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ListClients sends GET /clients.
func (c *PanelClient) ListClients() ([]api.ClientResponse, error) {
	var clients []api.ClientResponse
	if err := c.do(http.MethodGet, "/clients", nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// ClientStatus sends GET /clients/{id}/status. The result is the raw
// cached snapshot; nil when the client is unknown.
func (c *PanelClient) ClientStatus(clientID string) (json.RawMessage, error) {
	var snap json.RawMessage
	if err := c.do(http.MethodGet, "/clients/"+clientID+"/status", nil, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ClientLogs sends GET /clients/{id}/logs.
func (c *PanelClient) ClientLogs(clientID string) ([]logLine, error) {
	var logs []logLine
	if err := c.do(http.MethodGet, "/clients/"+clientID+"/logs", nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

type logLine struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module,omitempty"`
}

// StartRun sends POST /runs.
func (c *PanelClient) StartRun(req api.StartRunRequest) (*api.RunResponse, error) {
	var run api.RunResponse
	if err := c.do(http.MethodPost, "/runs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// StopRun sends POST /runs/{id}/stop.
func (c *PanelClient) StopRun(runID string, abort bool) (*api.RunResponse, error) {
	var run api.RunResponse
	if err := c.do(http.MethodPost, "/runs/"+runID+"/stop", api.StopRunRequest{Abort: abort}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SendMessage sends POST /messages.
func (c *PanelClient) SendMessage(req api.SendMessageRequest) (*api.MessageResponse, error) {
	var msg api.MessageResponse
	if err := c.do(http.MethodPost, "/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListTemplates sends GET /templates, optionally filtered by kind.
func (c *PanelClient) ListTemplates(kind string) ([]api.TemplateResponse, error) {
	path := "/templates"
	if kind != "" {
		path += "?kind=" + kind
	}
	var templates []api.TemplateResponse
	if err := c.do(http.MethodGet, path, nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}
