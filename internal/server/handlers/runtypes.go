package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"daqpanel/internal/store"
	"daqpanel/pkg/api"

	"github.com/google/uuid"
)

// CreateRunType handles POST /run-types.
func (h *Handlers) CreateRunType(w http.ResponseWriter, r *http.Request) {
	var req api.RunTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.httpError(w, "name is required", http.StatusBadRequest)
		return
	}

	rt := &store.RunType{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		RequiredTags: req.RequiredTags,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.CreateRunType(r.Context(), rt); err != nil {
		h.httpError(w, "Failed to create run type", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, runTypeResponse(rt))
}

// GetRunType handles GET /run-types/{id}.
func (h *Handlers) GetRunType(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}

	rt, err := h.store.GetRunTypeByID(r.Context(), runTypeID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Run type not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, runTypeResponse(rt))
}

// ListRunTypes handles GET /run-types.
func (h *Handlers) ListRunTypes(w http.ResponseWriter, r *http.Request) {
	runTypes, err := h.store.ListRunTypes(r.Context())
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.RunTypeResponse, 0, len(runTypes))
	for i := range runTypes {
		resp = append(resp, *runTypeResponse(&runTypes[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// UpdateRunType handles PUT /run-types/{id}.
func (h *Handlers) UpdateRunType(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}

	var req api.RunTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.httpError(w, "name is required", http.StatusBadRequest)
		return
	}

	rt := &store.RunType{
		ID:           runTypeID,
		Name:         req.Name,
		Description:  req.Description,
		RequiredTags: req.RequiredTags,
	}
	err = h.store.UpdateRunType(r.Context(), rt)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Run type not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to update run type", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, runTypeResponse(rt))
}

// DeleteRunType handles DELETE /run-types/{id}.
func (h *Handlers) DeleteRunType(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteRunType(r.Context(), runTypeID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Run type not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to delete run type", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// LinkRunTypeTemplate handles POST /run-types/{id}/templates/{templateId}.
func (h *Handlers) LinkRunTypeTemplate(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}
	templateID, err := uuid.Parse(r.PathValue("templateId"))
	if err != nil {
		h.httpError(w, "Invalid template id", http.StatusBadRequest)
		return
	}

	if err := h.store.LinkTemplate(r.Context(), runTypeID, templateID); err != nil {
		h.httpError(w, "Failed to link template", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "linked"})
}

// UnlinkRunTypeTemplate handles DELETE /run-types/{id}/templates/{templateId}.
func (h *Handlers) UnlinkRunTypeTemplate(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}
	templateID, err := uuid.Parse(r.PathValue("templateId"))
	if err != nil {
		h.httpError(w, "Invalid template id", http.StatusBadRequest)
		return
	}

	err = h.store.UnlinkTemplate(r.Context(), runTypeID, templateID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Link not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to unlink template", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

// ListRunTypeTemplates handles GET /run-types/{id}/templates.
func (h *Handlers) ListRunTypeTemplates(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}

	templates, err := h.store.ListTemplatesForRunType(r.Context(), runTypeID)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.TemplateResponse, 0, len(templates))
	for i := range templates {
		resp = append(resp, *templateResponse(&templates[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// SetRunTypeParameterDefault handles PUT /run-types/{id}/parameters/{name}.
func (h *Handlers) SetRunTypeParameterDefault(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}
	paramName := r.PathValue("name")

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.SetParameterDefault(r.Context(), runTypeID, paramName, req.Value); err != nil {
		h.httpError(w, "Failed to set parameter default", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ListRunTypeParameterDefaults handles GET /run-types/{id}/parameters.
func (h *Handlers) ListRunTypeParameterDefaults(w http.ResponseWriter, r *http.Request) {
	runTypeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run type id", http.StatusBadRequest)
		return
	}

	defaults, err := h.store.ListParameterDefaults(r.Context(), runTypeID)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, defaults)
}

func runTypeResponse(rt *store.RunType) *api.RunTypeResponse {
	return &api.RunTypeResponse{
		ID:           rt.ID.String(),
		Name:         rt.Name,
		Description:  rt.Description,
		RequiredTags: rt.RequiredTags,
	}
}
