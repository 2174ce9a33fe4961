package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"daqpanel/internal/store"
	"daqpanel/pkg/api"

	"github.com/google/uuid"
)

// CreateWebhook handles POST /webhooks.
func (h *Handlers) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req api.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if errMsg := validateWebhookRequest(&req); errMsg != "" {
		h.httpError(w, errMsg, http.StatusBadRequest)
		return
	}

	hook := &store.Webhook{
		ID:               uuid.New(),
		Name:             req.Name,
		URL:              req.URL,
		Secret:           req.Secret,
		TriggerOnRun:     req.TriggerOnRun,
		TriggerOnMessage: req.TriggerOnMessage,
		Active:           req.Active,
		PayloadTemplate:  req.PayloadTemplate,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.store.CreateWebhook(r.Context(), hook); err != nil {
		h.httpError(w, "Failed to create webhook", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, webhookResponse(hook))
}

// GetWebhook handles GET /webhooks/{id}.
func (h *Handlers) GetWebhook(w http.ResponseWriter, r *http.Request) {
	hookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid webhook id", http.StatusBadRequest)
		return
	}

	hook, err := h.store.GetWebhookByID(r.Context(), hookID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Webhook not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, webhookResponse(hook))
}

// ListWebhooks handles GET /webhooks.
func (h *Handlers) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.store.ListWebhooks(r.Context())
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.WebhookResponse, 0, len(hooks))
	for i := range hooks {
		resp = append(resp, *webhookResponse(&hooks[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// UpdateWebhook handles PUT /webhooks/{id}. An absent secret in the
// request clears the stored one.
func (h *Handlers) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	hookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid webhook id", http.StatusBadRequest)
		return
	}

	var req api.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if errMsg := validateWebhookRequest(&req); errMsg != "" {
		h.httpError(w, errMsg, http.StatusBadRequest)
		return
	}

	hook := &store.Webhook{
		ID:               hookID,
		Name:             req.Name,
		URL:              req.URL,
		Secret:           req.Secret,
		TriggerOnRun:     req.TriggerOnRun,
		TriggerOnMessage: req.TriggerOnMessage,
		Active:           req.Active,
		PayloadTemplate:  req.PayloadTemplate,
	}
	err = h.store.UpdateWebhook(r.Context(), hook)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Webhook not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to update webhook", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, webhookResponse(hook))
}

// DeleteWebhook handles DELETE /webhooks/{id}.
func (h *Handlers) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	hookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid webhook id", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteWebhook(r.Context(), hookID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Webhook not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to delete webhook", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func validateWebhookRequest(req *api.WebhookRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	if req.URL == "" {
		return "url is required"
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "url must be a valid http or https URL"
	}
	if req.PayloadTemplate != nil && !json.Valid([]byte(*req.PayloadTemplate)) {
		return "payload_template must be valid JSON"
	}
	return ""
}

// webhookResponse never echoes the secret, only whether one is set.
func webhookResponse(hook *store.Webhook) *api.WebhookResponse {
	return &api.WebhookResponse{
		ID:               hook.ID.String(),
		Name:             hook.Name,
		URL:              hook.URL,
		TriggerOnRun:     hook.TriggerOnRun,
		TriggerOnMessage: hook.TriggerOnMessage,
		Active:           hook.Active,
		HasSecret:        hook.Secret != nil && *hook.Secret != "",
	}
}
