// Package handlers contains HTTP handlers for the panel API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"daqpanel/internal/gateway"
	"daqpanel/internal/statuscache"
	"daqpanel/internal/store"
	"daqpanel/pkg/api"
)

// StoreFactory combines the repository interfaces the handlers need.
type StoreFactory interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	Ping(ctx context.Context) error
	store.RunStore
	store.RunTypeStore
	store.TemplateStore
	store.MessageStore
	store.WebhookStore
}

// StatusReader is the synchronous read side of the status cache.
type StatusReader interface {
	Status(clientID string) (*statuscache.Snapshot, bool)
	Logs(clientID string) []gateway.LogEntry
	Clients() []gateway.ClientInfo
}

// DAQGateway is the subset of the gateway used by user-initiated actions.
type DAQGateway interface {
	Restart(ctx context.Context, clientID string) error
	StopAll(ctx context.Context, clientID string) error
	RunJob(ctx context.Context, clientID, configText string) (*gateway.RunJobResult, error)
	StopJob(ctx context.Context, clientID, jobUID string, remove bool) error
	SendMessage(ctx context.Context, clientID, msgType string, payload json.RawMessage, targetUID *string) error
	JobSchemas(ctx context.Context, clientID string) (json.RawMessage, error)
	MessageSchemas(ctx context.Context, clientID string) (json.RawMessage, error)
}

// Notifier delivers run/message events to webhooks.
type Notifier interface {
	NotifyRun(ctx context.Context, event string, run *store.Run)
	NotifyMessage(ctx context.Context, event string, msg *store.Message)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store    StoreFactory
	cache    StatusReader
	daq      DAQGateway
	notifier Notifier
	logger   *slog.Logger
}

// New creates a new Handlers instance.
func New(s StoreFactory, cache StatusReader, daq DAQGateway, notifier Notifier, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:    s,
		cache:    cache,
		daq:      daq,
		notifier: notifier,
		logger:   logger,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// parseLimitOffset reads list pagination query parameters with defaults.
func parseLimitOffset(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
