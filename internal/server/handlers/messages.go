package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"daqpanel/internal/store"
	"daqpanel/pkg/api"

	"github.com/google/uuid"
)

// SendMessage handles POST /messages.
//
// A Message row is recorded for every dispatch attempt: SENT on success,
// FAILED with the error captured otherwise. The row is written even when
// the upstream send fails.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		h.httpError(w, "client_id is required", http.StatusBadRequest)
		return
	}

	var runID *uuid.UUID
	if req.RunID != nil {
		parsed, err := uuid.Parse(*req.RunID)
		if err != nil {
			h.httpError(w, "Invalid run id", http.StatusBadRequest)
			return
		}
		runID = &parsed
	}

	var (
		tmpl       *store.Template
		templateID *uuid.UUID
		msgType    string
		payload    json.RawMessage
		paramVals  map[string]string
	)

	if req.TemplateID != nil {
		parsed, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			h.httpError(w, "Invalid template id", http.StatusBadRequest)
			return
		}
		tmpl, err = h.store.GetTemplateByID(ctx, parsed)
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Template not found", http.StatusNotFound)
			return
		}
		if err != nil {
			h.httpError(w, "Internal database error", http.StatusInternalServerError)
			return
		}
		if tmpl.Kind != store.TemplateKindMessage || tmpl.MessageType == nil {
			h.httpError(w, "Template is not a message template", http.StatusBadRequest)
			return
		}
		templateID = &parsed
		msgType = *tmpl.MessageType

		resolved, err := resolveParameters(tmpl, nil, req.ParameterValues)
		if err != nil {
			h.httpError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if runID != nil {
			resolved["run_id"] = runID.String()
		}
		paramVals = resolved

		rendered := renderParameters(tmpl.Body, resolved)
		if !json.Valid([]byte(rendered)) {
			h.httpError(w, "Rendered payload is not valid JSON", http.StatusBadRequest)
			return
		}
		payload = json.RawMessage(rendered)
	} else {
		// Raw ad-hoc message.
		if req.MessageType == "" || len(req.Payload) == 0 {
			h.httpError(w, "message_type and payload are required for raw messages", http.StatusBadRequest)
			return
		}
		if !json.Valid(req.Payload) {
			h.httpError(w, "payload must be valid JSON", http.StatusBadRequest)
			return
		}
		msgType = req.MessageType
		payload = req.Payload
	}

	targetUID := h.resolveTargetJob(req.ClientID, tmpl)

	sendErr := h.daq.SendMessage(ctx, req.ClientID, msgType, payload, targetUID)

	msg := &store.Message{
		ID:              uuid.New(),
		TemplateID:      templateID,
		RunID:           runID,
		ClientID:        req.ClientID,
		TargetUID:       targetUID,
		MessageType:     msgType,
		Payload:         payload,
		Status:          store.MessageStatusSent,
		SentAt:          time.Now().UTC(),
		ParameterValues: upperKeys(paramVals),
	}
	if sendErr != nil {
		errText := sendErr.Error()
		msg.Status = store.MessageStatusFailed
		msg.ErrorMessage = &errText
	}

	// The dispatch record is written regardless of the send outcome.
	if err := h.store.CreateMessage(ctx, msg); err != nil {
		h.logger.Error("failed to record message", "client_id", req.ClientID, "error", err)
		h.httpError(w, "Failed to record message", http.StatusInternalServerError)
		return
	}

	go h.notifier.NotifyMessage(context.Background(), "message_sent", msg)

	status := http.StatusCreated
	if sendErr != nil {
		h.logger.Error("message send failed", "client_id", req.ClientID, "type", msgType, "error", sendErr)
		status = http.StatusBadGateway
	}
	h.respondJson(w, status, messageResponse(msg))
}

// resolveTargetJob maps a template's declared target job type to a live
// job uid using the cached status. Unresolvable targets fall back to
// broadcast (nil).
func (h *Handlers) resolveTargetJob(clientID string, tmpl *store.Template) *string {
	if tmpl == nil || tmpl.TargetJobType == nil {
		return nil
	}

	snap, ok := h.cache.Status(clientID)
	if !ok || snap.Status == nil {
		return nil
	}
	for _, job := range snap.Status.Jobs {
		if job.JobType == *tmpl.TargetJobType {
			uid := job.UID
			return &uid
		}
	}
	return nil
}

// ListMessages handles GET /messages with optional run_id and client_id
// filters.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	var runID *uuid.UUID
	if v := r.URL.Query().Get("run_id"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			h.httpError(w, "Invalid run id", http.StatusBadRequest)
			return
		}
		runID = &parsed
	}
	var clientID *string
	if v := r.URL.Query().Get("client_id"); v != "" {
		clientID = &v
	}

	messages, err := h.store.ListMessages(r.Context(), runID, clientID, limit, offset)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.MessageResponse, 0, len(messages))
	for i := range messages {
		resp = append(resp, *messageResponse(&messages[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

func messageResponse(msg *store.Message) *api.MessageResponse {
	resp := &api.MessageResponse{
		ID:           msg.ID.String(),
		ClientID:     msg.ClientID,
		TargetUID:    msg.TargetUID,
		MessageType:  msg.MessageType,
		Payload:      msg.Payload,
		Status:       string(msg.Status),
		ErrorMessage: msg.ErrorMessage,
		SentAt:       msg.SentAt,
	}
	if msg.RunID != nil {
		s := msg.RunID.String()
		resp.RunID = &s
	}
	return resp
}
