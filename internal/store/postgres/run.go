package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"daqpanel/internal/store"

	"github.com/google/uuid"
)

const runColumns = `id, description, status, client_id, run_type_id, job_config, job_uids, started_at, ended_at, scheduled_end, created_at`

// CreateRun inserts a new run row. Job uids are stored as a JSON array.
func (s *Store) CreateRun(ctx context.Context, tx store.DBTransaction, run *store.Run) error {
	query := `
		INSERT INTO runs (id, description, status, client_id, run_type_id, job_config, job_uids, started_at, ended_at, scheduled_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	uids, err := json.Marshal(uidsOrEmpty(run.JobUIDs))
	if err != nil {
		return err
	}

	_, err = s.getExecutor(tx).ExecContext(ctx, query,
		run.ID,
		run.Description,
		run.Status,
		run.ClientID,
		run.RunTypeID,
		run.JobConfig,
		uids,
		run.StartedAt,
		run.EndedAt,
		run.ScheduledEnd,
		run.CreatedAt,
	)
	return err
}

// GetRunByID returns a run by its ID.
func (s *Store) GetRunByID(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	query := fmt.Sprintf("SELECT %s FROM runs WHERE id = $1", runColumns)
	return scanRun(s.db.QueryRowContext(ctx, query, id))
}

// ListRuns returns runs ordered by start time, newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]store.Run, error) {
	query := fmt.Sprintf("SELECT %s FROM runs ORDER BY started_at DESC LIMIT $1 OFFSET $2", runColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetActiveRunForClient returns the RUNNING run for a client. Uses an
// advisory lock keyed by the client id so two concurrent start-run
// requests cannot both observe "no active run".
func (s *Store) GetActiveRunForClient(ctx context.Context, tx store.DBTransaction, clientID string) (*store.Run, error) {
	executor := s.getExecutor(tx)

	if _, err := executor.ExecContext(ctx, `SELECT pg_advisory_xact_lock(2, hashtext($1))`, clientID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM runs WHERE client_id = $1 AND status = $2 LIMIT 1", runColumns)
	run, err := scanRun(executor.QueryRowContext(ctx, query, clientID, store.RunStatusRunning))
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun sets the run's terminal status and end time.
func (s *Store) FinishRun(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status store.RunStatus) error {
	query := `UPDATE runs SET status = $2, ended_at = $3 WHERE id = $1`

	result, err := s.getExecutor(tx).ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetRunJobUIDs records the DAQ job ids launched for a run.
func (s *Store) SetRunJobUIDs(ctx context.Context, tx store.DBTransaction, id uuid.UUID, uids []string) error {
	encoded, err := json.Marshal(uidsOrEmpty(uids))
	if err != nil {
		return err
	}

	_, err = s.getExecutor(tx).ExecContext(ctx,
		`UPDATE runs SET job_uids = $2 WHERE id = $1`, id, encoded)
	return err
}

// UpsertRunNote creates or updates the 1:1 note for a run.
func (s *Store) UpsertRunNote(ctx context.Context, note *store.RunNote) error {
	query := `
		INSERT INTO run_notes (run_id, notes, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE SET notes = $2, updated_by = $3, updated_at = $4
	`

	_, err := s.db.ExecContext(ctx, query, note.RunID, note.Notes, note.UpdatedBy, note.UpdatedAt)
	return err
}

// GetRunNote returns the note for a run.
func (s *Store) GetRunNote(ctx context.Context, runID uuid.UUID) (*store.RunNote, error) {
	query := `SELECT run_id, notes, updated_by, updated_at FROM run_notes WHERE run_id = $1`

	var note store.RunNote
	err := s.db.QueryRowContext(ctx, query, runID).Scan(&note.RunID, &note.Notes, &note.UpdatedBy, &note.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// CountRunsByStatus reports how many runs are in the given state. Used by
// the observable runs gauge.
func (s *Store) CountRunsByStatus(ctx context.Context, status store.RunStatus) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE status = $1`, status).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*store.Run, error) {
	var run store.Run
	var uids []byte

	err := row.Scan(
		&run.ID, &run.Description, &run.Status, &run.ClientID, &run.RunTypeID,
		&run.JobConfig, &uids, &run.StartedAt, &run.EndedAt, &run.ScheduledEnd,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(uids) > 0 {
		if err := json.Unmarshal(uids, &run.JobUIDs); err != nil {
			return nil, fmt.Errorf("corrupt job_uids for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

func scanRunRows(rows *sql.Rows) (*store.Run, error) {
	return scanRun(rows)
}

func uidsOrEmpty(uids []string) []string {
	if uids == nil {
		return []string{}
	}
	return uids
}
