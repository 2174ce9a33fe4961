// Package store contains the database layer for daqpanel.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusStopped   RunStatus = "STOPPED"
)

// Run is one logical experiment session, usually backed by one DAQ job.
type Run struct {
	ID           uuid.UUID
	Description  string
	Status       RunStatus
	ClientID     *string
	RunTypeID    *uuid.UUID
	JobConfig    *string // rendered configuration sent to the client
	JobUIDs      []string
	StartedAt    time.Time
	EndedAt      *time.Time
	ScheduledEnd *time.Time
	CreatedAt    time.Time
}

// RunNote is free-text metadata attached 1:1 to a run, maintained
// independently of the run's lifecycle.
type RunNote struct {
	RunID     uuid.UUID
	Notes     string
	UpdatedBy string
	UpdatedAt time.Time
}

// RunType is a named run category. Clients lacking any of the required
// tags are not eligible targets for runs of this type.
type RunType struct {
	ID           uuid.UUID
	Name         string
	Description  *string
	RequiredTags []string
	CreatedAt    time.Time
}

// TemplateKind distinguishes run-configuration templates from message
// payload templates.
type TemplateKind string

const (
	TemplateKindRun     TemplateKind = "run"
	TemplateKindMessage TemplateKind = "message"
)

// Template is a reusable configuration or message payload pattern.
// For message templates, Body is a JSON payload pattern with {PARAM}
// placeholders; a nil TargetJobType means broadcast. Non-editable
// templates are built-in and reject mutation and deletion.
type Template struct {
	ID            uuid.UUID
	Name          string
	Kind          TemplateKind
	Body          string
	MessageType   *string
	TargetJobType *string
	Editable      bool
	CreatedAt     time.Time

	// Populated on fetch, not stored on the templates row.
	Parameters []TemplateParameter
}

// TemplateParameter is one named, typed placeholder of a template.
type TemplateParameter struct {
	ID           uuid.UUID
	TemplateID   uuid.UUID
	Name         string
	Type         string
	Required     bool
	DefaultValue *string
}

// MessageStatus is the outcome of one dispatch attempt.
type MessageStatus string

const (
	MessageStatusSent   MessageStatus = "SENT"
	MessageStatusFailed MessageStatus = "FAILED"
)

// Message records one dispatch attempt, written whether or not the send
// succeeded.
type Message struct {
	ID           uuid.UUID
	TemplateID   *uuid.UUID // nil for raw ad-hoc messages
	RunID        *uuid.UUID
	ClientID     string
	TargetUID    *string // nil means broadcast
	MessageType  string
	Payload      json.RawMessage
	Status       MessageStatus
	ErrorMessage *string
	SentAt       time.Time

	// Parameter values used to render the payload, keyed by name.
	ParameterValues map[string]string
}

// Webhook is an external notification target.
type Webhook struct {
	ID               uuid.UUID
	Name             string
	URL              string
	Secret           *string // sent verbatim as the Authorization header
	TriggerOnRun     bool
	TriggerOnMessage bool
	Active           bool
	PayloadTemplate  *string // custom JSON payload template, {field} interpolated
	CreatedAt        time.Time
}

// WebhookTrigger selects which event class a webhook listens to.
type WebhookTrigger string

const (
	WebhookTriggerRun     WebhookTrigger = "run"
	WebhookTriggerMessage WebhookTrigger = "message"
)
