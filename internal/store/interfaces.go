package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNotEditable is returned when mutating or deleting a built-in template.
var ErrNotEditable = errors.New("template is not editable")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// RunStore handles the persistence of runs and their notes.
type RunStore interface {
	// CreateRun inserts a new run row.
	CreateRun(ctx context.Context, tx DBTransaction, run *Run) error

	// GetRunByID returns a run by its ID.
	GetRunByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// ListRuns returns runs ordered by start time, newest first.
	ListRuns(ctx context.Context, limit, offset int) ([]Run, error)

	// GetActiveRunForClient returns the RUNNING run for a client,
	// or ErrNotFound when there is none.
	GetActiveRunForClient(ctx context.Context, tx DBTransaction, clientID string) (*Run, error)

	// FinishRun sets the run's terminal status and end time.
	FinishRun(ctx context.Context, tx DBTransaction, id uuid.UUID, status RunStatus) error

	// SetRunJobUIDs records the DAQ job ids launched for a run.
	SetRunJobUIDs(ctx context.Context, tx DBTransaction, id uuid.UUID, uids []string) error

	// UpsertRunNote creates or updates the 1:1 note for a run.
	UpsertRunNote(ctx context.Context, note *RunNote) error

	// GetRunNote returns the note for a run, or ErrNotFound.
	GetRunNote(ctx context.Context, runID uuid.UUID) (*RunNote, error)
}

// RunTypeStore handles run categories, their required tags, associated
// templates, and per-parameter default overrides.
type RunTypeStore interface {
	CreateRunType(ctx context.Context, rt *RunType) error
	GetRunTypeByID(ctx context.Context, id uuid.UUID) (*RunType, error)
	ListRunTypes(ctx context.Context) ([]RunType, error)
	UpdateRunType(ctx context.Context, rt *RunType) error
	DeleteRunType(ctx context.Context, id uuid.UUID) error

	// LinkTemplate associates a template with a run type.
	LinkTemplate(ctx context.Context, runTypeID, templateID uuid.UUID) error
	UnlinkTemplate(ctx context.Context, runTypeID, templateID uuid.UUID) error
	ListTemplatesForRunType(ctx context.Context, runTypeID uuid.UUID) ([]Template, error)

	// SetParameterDefault overrides a template parameter's default for
	// runs of this type.
	SetParameterDefault(ctx context.Context, runTypeID uuid.UUID, paramName, value string) error
	ListParameterDefaults(ctx context.Context, runTypeID uuid.UUID) (map[string]string, error)
}

// TemplateStore handles reusable run/message templates and their parameters.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *Template) error

	// GetTemplateByID returns a template with its parameters populated.
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*Template, error)

	ListTemplates(ctx context.Context, kind *TemplateKind) ([]Template, error)

	// UpdateTemplate mutates an editable template; returns ErrNotEditable
	// for built-in ones.
	UpdateTemplate(ctx context.Context, t *Template) error

	// DeleteTemplate removes an editable template; returns ErrNotEditable
	// for built-in ones.
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	AddParameter(ctx context.Context, p *TemplateParameter) error
	DeleteParameter(ctx context.Context, id uuid.UUID) error
}

// MessageStore records dispatch attempts.
type MessageStore interface {
	// CreateMessage inserts a message row together with its parameter values.
	CreateMessage(ctx context.Context, msg *Message) error

	// ListMessages returns messages newest first, optionally filtered by
	// run or client.
	ListMessages(ctx context.Context, runID *uuid.UUID, clientID *string, limit, offset int) ([]Message, error)
}

// WebhookStore handles notification targets.
type WebhookStore interface {
	CreateWebhook(ctx context.Context, w *Webhook) error
	GetWebhookByID(ctx context.Context, id uuid.UUID) (*Webhook, error)
	ListWebhooks(ctx context.Context) ([]Webhook, error)

	// ListActiveWebhooks returns active webhooks whose trigger flag for
	// the given event class is set.
	ListActiveWebhooks(ctx context.Context, trigger WebhookTrigger) ([]Webhook, error)

	UpdateWebhook(ctx context.Context, w *Webhook) error
	DeleteWebhook(ctx context.Context, id uuid.UUID) error
}
