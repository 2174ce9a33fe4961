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

func TestGetRunByID_Success(t *testing.T) {
	store_, mock := newMockStore(t)

	ctx := context.Background()
	runID := uuid.New()
	clientID := "vme-0"
	started := time.Now().Add(-time.Hour)

	mock.ExpectQuery(`SELECT .* FROM runs WHERE id = \$1`).
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "description", "status", "client_id", "run_type_id",
			"job_config", "job_uids", "started_at", "ended_at", "scheduled_end", "created_at",
		}).AddRow(
			runID, "Cal run", "RUNNING", clientID, nil,
			nil, []byte(`["j-1","j-2"]`), started, nil, nil, started,
		))

	run, err := store_.GetRunByID(ctx, runID)
	if err != nil {
		t.Fatalf("GetRunByID failed: %v", err)
	}

	if run.ID != runID {
		t.Errorf("got ID %v, want %v", run.ID, runID)
	}
	if run.Status != store.RunStatusRunning {
		t.Errorf("got Status %v, want RUNNING", run.Status)
	}
	if len(run.JobUIDs) != 2 || run.JobUIDs[0] != "j-1" {
		t.Errorf("got JobUIDs %v", run.JobUIDs)
	}
	if run.ClientID == nil || *run.ClientID != clientID {
		t.Errorf("got ClientID %v", run.ClientID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetRunByID_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)

	runID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM runs WHERE id = \$1`).
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store_.GetRunByID(context.Background(), runID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRun(t *testing.T) {
	store_, mock := newMockStore(t)

	clientID := "vme-0"
	run := &store.Run{
		ID:          uuid.New(),
		Description: "Background run",
		Status:      store.RunStatusRunning,
		ClientID:    &clientID,
		StartedAt:   time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(run.ID, run.Description, run.Status, run.ClientID, nil,
			nil, []byte(`[]`), run.StartedAt, nil, nil, run.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store_.CreateRun(context.Background(), nil, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetActiveRunForClient_None(t *testing.T) {
	store_, mock := newMockStore(t)

	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("vme-0").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM runs WHERE client_id = \$1 AND status = \$2`).
		WithArgs("vme-0", store.RunStatusRunning).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store_.GetActiveRunForClient(context.Background(), nil, "vme-0")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFinishRun_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)

	runID := uuid.New()
	mock.ExpectExec(`UPDATE runs SET status = \$2, ended_at = \$3 WHERE id = \$1`).
		WithArgs(runID, store.RunStatusStopped, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store_.FinishRun(context.Background(), nil, runID, store.RunStatusStopped)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertRunNote(t *testing.T) {
	store_, mock := newMockStore(t)

	note := &store.RunNote{
		RunID:     uuid.New(),
		Notes:     "beam unstable after 14:00",
		UpdatedBy: "operator1",
		UpdatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO run_notes`).
		WithArgs(note.RunID, note.Notes, note.UpdatedBy, note.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store_.UpsertRunNote(context.Background(), note); err != nil {
		t.Fatalf("UpsertRunNote failed: %v", err)
	}
}
