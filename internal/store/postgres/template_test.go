package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"daqpanel/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestGetTemplateByID_WithParameters(t *testing.T) {
	store_, mock := newMockStore(t)

	templateID := uuid.New()
	paramID := uuid.New()
	created := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM templates WHERE id = \$1`).
		WithArgs(templateID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "kind", "body", "message_type", "target_job_type", "editable", "created_at",
		}).AddRow(
			templateID, "threshold-change", "message", `{"value": "{THRESHOLD}"}`,
			"set_threshold", "readout", true, created,
		))
	mock.ExpectQuery(`SELECT .* FROM template_parameters WHERE template_id = \$1`).
		WithArgs(templateID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "template_id", "name", "type", "required", "default_value",
		}).AddRow(paramID, templateID, "threshold", "int", true, "100"))

	tmpl, err := store_.GetTemplateByID(context.Background(), templateID)
	if err != nil {
		t.Fatalf("GetTemplateByID failed: %v", err)
	}

	if tmpl.Kind != store.TemplateKindMessage {
		t.Errorf("got Kind %v, want message", tmpl.Kind)
	}
	if tmpl.MessageType == nil || *tmpl.MessageType != "set_threshold" {
		t.Errorf("got MessageType %v", tmpl.MessageType)
	}
	if len(tmpl.Parameters) != 1 || tmpl.Parameters[0].Name != "threshold" {
		t.Errorf("got Parameters %+v", tmpl.Parameters)
	}
	if tmpl.Parameters[0].DefaultValue == nil || *tmpl.Parameters[0].DefaultValue != "100" {
		t.Errorf("got DefaultValue %v", tmpl.Parameters[0].DefaultValue)
	}
}

func TestDeleteTemplate_NotEditable(t *testing.T) {
	store_, mock := newMockStore(t)

	templateID := uuid.New()

	// Delete matches zero rows because of the editable guard; the
	// follow-up select finds the row locked.
	mock.ExpectExec(`DELETE FROM templates WHERE id = \$1 AND editable = TRUE`).
		WithArgs(templateID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT editable FROM templates WHERE id = \$1`).
		WithArgs(templateID).
		WillReturnRows(sqlmock.NewRows([]string{"editable"}).AddRow(false))

	err := store_.DeleteTemplate(context.Background(), templateID)
	if !errors.Is(err, store.ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
}

func TestDeleteTemplate_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)

	templateID := uuid.New()

	mock.ExpectExec(`DELETE FROM templates WHERE id = \$1 AND editable = TRUE`).
		WithArgs(templateID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT editable FROM templates WHERE id = \$1`).
		WithArgs(templateID).
		WillReturnRows(sqlmock.NewRows([]string{"editable"}))

	err := store_.DeleteTemplate(context.Background(), templateID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTemplate_NotEditable(t *testing.T) {
	store_, mock := newMockStore(t)

	tmpl := &store.Template{
		ID:   uuid.New(),
		Name: "locked",
		Body: "new body",
	}

	mock.ExpectExec(`UPDATE templates`).
		WithArgs(tmpl.ID, tmpl.Name, tmpl.Body, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT editable FROM templates WHERE id = \$1`).
		WithArgs(tmpl.ID).
		WillReturnRows(sqlmock.NewRows([]string{"editable"}).AddRow(false))

	err := store_.UpdateTemplate(context.Background(), tmpl)
	if !errors.Is(err, store.ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
}

func TestUpdateTemplate_Success(t *testing.T) {
	store_, mock := newMockStore(t)

	tmpl := &store.Template{
		ID:   uuid.New(),
		Name: "user-template",
		Body: "[readout]\nrate = {RATE}",
	}

	mock.ExpectExec(`UPDATE templates`).
		WithArgs(tmpl.ID, tmpl.Name, tmpl.Body, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store_.UpdateTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}
}
