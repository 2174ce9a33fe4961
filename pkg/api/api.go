// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the panel server.
package api

import (
	"encoding/json"
	"time"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ClientResponse is one known DAQ client in list responses.
type ClientResponse struct {
	ID        string   `json:"id"`
	Hostname  string   `json:"hostname,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Connected bool     `json:"connected"`
}

// StartRunRequest is the request body for starting a run.
type StartRunRequest struct {
	Description     string            `json:"description"`
	ClientID        string            `json:"client_id"`
	RunTypeID       *string           `json:"run_type_id,omitempty"`
	TemplateID      *string           `json:"template_id,omitempty"`
	ParameterValues map[string]string `json:"parameter_values,omitempty"`
	ScheduledEnd    *time.Time        `json:"scheduled_end,omitempty"`
}

// StopRunRequest is the request body for stopping a run.
// Abort marks the run STOPPED instead of COMPLETED.
type StopRunRequest struct {
	Abort bool `json:"abort,omitempty"`
}

// RunResponse represents a run in API responses.
type RunResponse struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	ClientID     *string    `json:"client_id,omitempty"`
	RunTypeID    *string    `json:"run_type_id,omitempty"`
	JobUIDs      []string   `json:"job_uids,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ScheduledEnd *time.Time `json:"scheduled_end,omitempty"`
	Note         *string    `json:"note,omitempty"`
}

// RunNoteRequest is the request body for updating a run's note.
type RunNoteRequest struct {
	Notes string `json:"notes"`
}

// SendMessageRequest is the request body for dispatching a message.
// Either TemplateID or MessageType+Payload must be given; the latter form
// sends a raw ad-hoc message.
type SendMessageRequest struct {
	ClientID        string            `json:"client_id"`
	TemplateID      *string           `json:"template_id,omitempty"`
	MessageType     string            `json:"message_type,omitempty"`
	Payload         json.RawMessage   `json:"payload,omitempty"`
	ParameterValues map[string]string `json:"parameter_values,omitempty"`
	RunID           *string           `json:"run_id,omitempty"`
}

// MessageResponse represents one dispatch attempt in API responses.
type MessageResponse struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"client_id"`
	TargetUID    *string         `json:"target_uid,omitempty"`
	MessageType  string          `json:"message_type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	RunID        *string         `json:"run_id,omitempty"`
	SentAt       time.Time       `json:"sent_at"`
}

// TemplateRequest is the request body for creating or updating a template.
type TemplateRequest struct {
	Name          string  `json:"name"`
	Kind          string  `json:"kind"`
	Body          string  `json:"body"`
	MessageType   *string `json:"message_type,omitempty"`
	TargetJobType *string `json:"target_job_type,omitempty"`
}

// TemplateParameterRequest is the request body for adding a parameter.
type TemplateParameterRequest struct {
	Name         string  `json:"name"`
	Type         string  `json:"type,omitempty"`
	Required     bool    `json:"required,omitempty"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// TemplateResponse represents a template in API responses.
type TemplateResponse struct {
	ID            string                      `json:"id"`
	Name          string                      `json:"name"`
	Kind          string                      `json:"kind"`
	Body          string                      `json:"body"`
	MessageType   *string                     `json:"message_type,omitempty"`
	TargetJobType *string                     `json:"target_job_type,omitempty"`
	Editable      bool                        `json:"editable"`
	Parameters    []TemplateParameterResponse `json:"parameters,omitempty"`
}

// TemplateParameterResponse represents one template parameter.
type TemplateParameterResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Required     bool    `json:"required"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// RunTypeRequest is the request body for creating or updating a run type.
type RunTypeRequest struct {
	Name         string   `json:"name"`
	Description  *string  `json:"description,omitempty"`
	RequiredTags []string `json:"required_tags,omitempty"`
}

// RunTypeResponse represents a run type in API responses.
type RunTypeResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  *string  `json:"description,omitempty"`
	RequiredTags []string `json:"required_tags,omitempty"`
}

// WebhookRequest is the request body for creating or updating a webhook.
type WebhookRequest struct {
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	Secret           *string `json:"secret,omitempty"`
	TriggerOnRun     bool    `json:"trigger_on_run"`
	TriggerOnMessage bool    `json:"trigger_on_message"`
	Active           bool    `json:"active"`
	PayloadTemplate  *string `json:"payload_template,omitempty"`
}

// WebhookResponse represents a webhook in API responses. The secret is
// never echoed back.
type WebhookResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	URL              string `json:"url"`
	TriggerOnRun     bool   `json:"trigger_on_run"`
	TriggerOnMessage bool   `json:"trigger_on_message"`
	Active           bool   `json:"active"`
	HasSecret        bool   `json:"has_secret"`
}
