package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"daqpanel/internal/server/middleware"
	"daqpanel/internal/store"
	"daqpanel/pkg/api"

	"github.com/google/uuid"
)

// StartRun handles POST /runs.
//
// The run row is created optimistically before the remote launch; when the
// launch fails the row is rolled back to STOPPED with an end time so no
// orphaned RUNNING record survives. At most one RUNNING run is allowed per
// client, guarded by an advisory lock inside the transaction.
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		h.httpError(w, "client_id is required", http.StatusBadRequest)
		return
	}
	if req.TemplateID == nil && req.RunTypeID == nil {
		h.httpError(w, "template_id or run_type_id is required", http.StatusBadRequest)
		return
	}

	tmpl, runTypeID, typeDefaults, errMsg, errCode := h.resolveRunTemplate(ctx, &req)
	if errMsg != "" {
		h.httpError(w, errMsg, errCode)
		return
	}

	resolved, err := resolveParameters(tmpl, typeDefaults, req.ParameterValues)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}
	configText := renderParameters(tmpl.Body, resolved)

	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	// One RUNNING run per client.
	_, err = h.store.GetActiveRunForClient(ctx, tx, req.ClientID)
	if err == nil {
		h.httpError(w, "A run is already active for this client", http.StatusConflict)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	run := &store.Run{
		ID:           uuid.New(),
		Description:  req.Description,
		Status:       store.RunStatusRunning,
		ClientID:     &req.ClientID,
		RunTypeID:    runTypeID,
		JobConfig:    &configText,
		StartedAt:    now,
		ScheduledEnd: req.ScheduledEnd,
		CreatedAt:    now,
	}

	if err := h.store.CreateRun(ctx, tx, run); err != nil {
		h.httpError(w, "Failed to create run", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		h.httpError(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	// Remote launch. The run row already exists; undo it on failure.
	result, err := h.daq.RunJob(ctx, req.ClientID, configText)
	if err != nil {
		h.logger.Error("job launch failed, rolling run back", "run_id", run.ID, "error", err)
		if finishErr := h.store.FinishRun(ctx, nil, run.ID, store.RunStatusStopped); finishErr != nil {
			h.logger.Error("run rollback failed", "run_id", run.ID, "error", finishErr)
		}
		h.httpError(w, "Failed to launch DAQ job", http.StatusBadGateway)
		return
	}

	if len(result.JobUIDs) > 0 {
		if err := h.store.SetRunJobUIDs(ctx, nil, run.ID, result.JobUIDs); err != nil {
			h.logger.Error("failed to record job uids", "run_id", run.ID, "error", err)
		}
		run.JobUIDs = result.JobUIDs
	}

	go h.notifier.NotifyRun(context.Background(), "run_started", run)

	h.respondJson(w, http.StatusCreated, runResponse(run, nil))
}

// resolveRunTemplate picks the run template: an explicit template id, or
// the run type's first associated run-kind template.
func (h *Handlers) resolveRunTemplate(ctx context.Context, req *api.StartRunRequest) (*store.Template, *uuid.UUID, map[string]string, string, int) {
	if req.TemplateID != nil {
		templateID, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			return nil, nil, nil, "Invalid template id", http.StatusBadRequest
		}
		tmpl, err := h.store.GetTemplateByID(ctx, templateID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, nil, "Template not found", http.StatusNotFound
		}
		if err != nil {
			return nil, nil, nil, "Internal database error", http.StatusInternalServerError
		}
		if tmpl.Kind != store.TemplateKindRun {
			return nil, nil, nil, "Template is not a run template", http.StatusBadRequest
		}
		return tmpl, nil, nil, "", 0
	}

	runTypeID, err := uuid.Parse(*req.RunTypeID)
	if err != nil {
		return nil, nil, nil, "Invalid run type id", http.StatusBadRequest
	}
	templates, err := h.store.ListTemplatesForRunType(ctx, runTypeID)
	if err != nil {
		return nil, nil, nil, "Internal database error", http.StatusInternalServerError
	}
	for _, t := range templates {
		if t.Kind != store.TemplateKindRun {
			continue
		}
		tmpl, err := h.store.GetTemplateByID(ctx, t.ID)
		if err != nil {
			return nil, nil, nil, "Internal database error", http.StatusInternalServerError
		}
		defaults, err := h.store.ListParameterDefaults(ctx, runTypeID)
		if err != nil {
			return nil, nil, nil, "Internal database error", http.StatusInternalServerError
		}
		return tmpl, &runTypeID, defaults, "", 0
	}
	return nil, nil, nil, "Run type has no run template", http.StatusBadRequest
}

// StopRun handles POST /runs/{id}/stop.
// Job stops are best-effort: the run's bookkeeping is finished even when
// a supervisor is unreachable, so no RUNNING record outlives the operator's
// intent.
func (h *Handlers) StopRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	var req api.StopRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.store.GetRunByID(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}
	if run.Status != store.RunStatusRunning {
		h.httpError(w, "Run is not running", http.StatusConflict)
		return
	}

	if run.ClientID != nil {
		for _, uid := range run.JobUIDs {
			if err := h.daq.StopJob(ctx, *run.ClientID, uid, true); err != nil {
				h.logger.Warn("failed to stop job", "run_id", runID, "job_uid", uid, "error", err)
			}
		}
	}

	status := store.RunStatusCompleted
	if req.Abort {
		status = store.RunStatusStopped
	}
	if err := h.store.FinishRun(ctx, nil, runID, status); err != nil {
		h.httpError(w, "Failed to update run", http.StatusInternalServerError)
		return
	}

	run.Status = status
	ended := time.Now().UTC()
	run.EndedAt = &ended

	go h.notifier.NotifyRun(context.Background(), "run_stopped", run)

	h.respondJson(w, http.StatusOK, runResponse(run, nil))
}

// GetRun handles GET /runs/{id}.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	run, err := h.store.GetRunByID(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	var note *store.RunNote
	if n, err := h.store.GetRunNote(ctx, runID); err == nil {
		note = n
	}

	h.respondJson(w, http.StatusOK, runResponse(run, note))
}

// ListRuns handles GET /runs.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	runs, err := h.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.RunResponse, 0, len(runs))
	for i := range runs {
		resp = append(resp, *runResponse(&runs[i], nil))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// UpdateRunNote handles PUT /runs/{id}/note.
func (h *Handlers) UpdateRunNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	var req api.RunNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetRunByID(ctx, runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Run not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	updatedBy := ""
	if identity, ok := middleware.IdentityFromContext(ctx); ok {
		updatedBy = identity.User
	}

	note := &store.RunNote{
		RunID:     runID,
		Notes:     req.Notes,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.store.UpsertRunNote(ctx, note); err != nil {
		h.httpError(w, "Failed to save note", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, map[string]string{"status": "saved"})
}

func runResponse(run *store.Run, note *store.RunNote) *api.RunResponse {
	resp := &api.RunResponse{
		ID:           run.ID.String(),
		Description:  run.Description,
		Status:       string(run.Status),
		ClientID:     run.ClientID,
		JobUIDs:      run.JobUIDs,
		StartedAt:    run.StartedAt,
		EndedAt:      run.EndedAt,
		ScheduledEnd: run.ScheduledEnd,
	}
	if run.RunTypeID != nil {
		s := run.RunTypeID.String()
		resp.RunTypeID = &s
	}
	if note != nil {
		resp.Note = &note.Notes
	}
	return resp
}
