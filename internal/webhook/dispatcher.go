// Package webhook notifies external URLs about run and message events.
// Delivery is fire-and-forget: failures are logged per webhook and never
// propagate to the triggering operation.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"daqpanel/internal/store"
)

// Dispatcher delivers event notifications to configured webhooks.
type Dispatcher struct {
	store  store.WebhookStore
	client *http.Client
	logger *slog.Logger
}

// New creates a dispatcher backed by the given webhook store.
func New(ws store.WebhookStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  ws,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// NotifyRun delivers a run event (e.g. "run_started", "run_stopped") to
// every active webhook with the run trigger enabled. It blocks until all
// deliveries have been attempted and never returns an error.
func (d *Dispatcher) NotifyRun(ctx context.Context, event string, run *store.Run) {
	data := map[string]any{
		"id":          run.ID.String(),
		"description": run.Description,
		"status":      string(run.Status),
		"clientId":    strOrNil(run.ClientID),
		"startedAt":   run.StartedAt.Format(time.RFC3339),
		"jobUids":     run.JobUIDs,
	}
	if run.EndedAt != nil {
		data["endedAt"] = run.EndedAt.Format(time.RFC3339)
	}
	if run.RunTypeID != nil {
		data["runTypeId"] = run.RunTypeID.String()
	}

	vars := map[string]any{
		"event": event,
		"type":  "run",
		"runId": run.ID.String(),
	}

	d.dispatch(ctx, store.WebhookTriggerRun, event, data, vars)
}

// NotifyMessage delivers a message event to every active webhook with the
// message trigger enabled. Same contract as NotifyRun.
func (d *Dispatcher) NotifyMessage(ctx context.Context, event string, msg *store.Message) {
	var payload any
	if len(msg.Payload) > 0 {
		// Best effort; a raw string payload is passed through as-is.
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			payload = string(msg.Payload)
		}
	}

	data := map[string]any{
		"id":          msg.ID.String(),
		"clientId":    msg.ClientID,
		"messageType": msg.MessageType,
		"status":      string(msg.Status),
		"targetUid":   strOrNil(msg.TargetUID),
		"payload":     payload,
		"sentAt":      msg.SentAt.Format(time.RFC3339),
	}
	if msg.RunID != nil {
		data["runId"] = msg.RunID.String()
	}
	if msg.ErrorMessage != nil {
		data["errorMessage"] = *msg.ErrorMessage
	}
	if msg.ParameterValues != nil {
		data["parameterValues"] = msg.ParameterValues
	}

	vars := map[string]any{
		"event":     event,
		"type":      "message",
		"messageId": msg.ID.String(),
	}

	d.dispatch(ctx, store.WebhookTriggerMessage, event, data, vars)
}

// dispatch fans out one event to all matching webhooks concurrently.
// One webhook's failure never affects another's delivery.
func (d *Dispatcher) dispatch(ctx context.Context, trigger store.WebhookTrigger, event string, data, vars map[string]any) {
	hooks, err := d.store.ListActiveWebhooks(ctx, trigger)
	if err != nil {
		d.logger.Error("failed to load webhooks", "trigger", trigger, "error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	// Template variables: the reserved keys plus every top-level field of
	// the event data object.
	for k, v := range data {
		if _, reserved := vars[k]; !reserved {
			vars[k] = v
		}
	}

	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		go func(hook store.Webhook) {
			defer wg.Done()
			if err := d.deliver(ctx, hook, event, data, vars); err != nil {
				d.logger.Warn("webhook delivery failed",
					"webhook", hook.Name, "url", hook.URL, "event", event, "error", err)
			}
		}(hook)
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, hook store.Webhook, event string, data, vars map[string]any) error {
	payload := d.buildPayload(hook, event, data, vars)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if hook.Secret != nil && *hook.Secret != "" {
		req.Header.Set("Authorization", *hook.Secret)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// buildPayload renders the webhook's custom template when one is
// configured; a missing or invalid template falls back to the default
// envelope.
func (d *Dispatcher) buildPayload(hook store.Webhook, event string, data, vars map[string]any) any {
	if hook.PayloadTemplate != nil && *hook.PayloadTemplate != "" {
		rendered, err := renderTemplate(*hook.PayloadTemplate, vars)
		if err == nil {
			return rendered
		}
		d.logger.Warn("webhook payload template invalid, using default envelope",
			"webhook", hook.Name, "error", err)
	}

	return map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      data,
	}
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
