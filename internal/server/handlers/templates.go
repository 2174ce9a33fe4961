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

// CreateTemplate handles POST /templates.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req api.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tmpl, errMsg := templateFromRequest(&req)
	if errMsg != "" {
		h.httpError(w, errMsg, http.StatusBadRequest)
		return
	}
	tmpl.ID = uuid.New()
	tmpl.Editable = true
	tmpl.CreatedAt = time.Now().UTC()

	if err := h.store.CreateTemplate(r.Context(), tmpl); err != nil {
		h.httpError(w, "Failed to create template", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, templateResponse(tmpl))
}

// GetTemplate handles GET /templates/{id}.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid template id", http.StatusBadRequest)
		return
	}

	tmpl, err := h.store.GetTemplateByID(r.Context(), templateID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Template not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, templateResponse(tmpl))
}

// ListTemplates handles GET /templates with an optional kind filter.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var kind *store.TemplateKind
	if v := r.URL.Query().Get("kind"); v != "" {
		k := store.TemplateKind(v)
		if k != store.TemplateKindRun && k != store.TemplateKindMessage {
			h.httpError(w, "Invalid template kind", http.StatusBadRequest)
			return
		}
		kind = &k
	}

	templates, err := h.store.ListTemplates(r.Context(), kind)
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

// UpdateTemplate handles PUT /templates/{id}. Built-in templates reject
// mutation with 409.
func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid template id", http.StatusBadRequest)
		return
	}

	var req api.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tmpl, errMsg := templateFromRequest(&req)
	if errMsg != "" {
		h.httpError(w, errMsg, http.StatusBadRequest)
		return
	}
	tmpl.ID = templateID

	err = h.store.UpdateTemplate(r.Context(), tmpl)
	switch {
	case errors.Is(err, store.ErrNotEditable):
		h.httpError(w, "Template is not editable", http.StatusConflict)
		return
	case errors.Is(err, store.ErrNotFound):
		h.httpError(w, "Template not found", http.StatusNotFound)
		return
	case err != nil:
		h.httpError(w, "Failed to update template", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, templateResponse(tmpl))
}

// DeleteTemplate handles DELETE /templates/{id}.
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid template id", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteTemplate(r.Context(), templateID)
	switch {
	case errors.Is(err, store.ErrNotEditable):
		h.httpError(w, "Template is not editable", http.StatusConflict)
		return
	case errors.Is(err, store.ErrNotFound):
		h.httpError(w, "Template not found", http.StatusNotFound)
		return
	case err != nil:
		h.httpError(w, "Failed to delete template", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddTemplateParameter handles POST /templates/{id}/parameters.
func (h *Handlers) AddTemplateParameter(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid template id", http.StatusBadRequest)
		return
	}

	var req api.TemplateParameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.httpError(w, "name is required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetTemplateByID(r.Context(), templateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Template not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	paramType := req.Type
	if paramType == "" {
		paramType = "string"
	}
	param := &store.TemplateParameter{
		ID:           uuid.New(),
		TemplateID:   templateID,
		Name:         req.Name,
		Type:         paramType,
		Required:     req.Required,
		DefaultValue: req.DefaultValue,
	}
	if err := h.store.AddParameter(r.Context(), param); err != nil {
		h.httpError(w, "Failed to add parameter", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, parameterResponse(param))
}

// DeleteTemplateParameter handles DELETE /templates/{id}/parameters/{paramId}.
func (h *Handlers) DeleteTemplateParameter(w http.ResponseWriter, r *http.Request) {
	paramID, err := uuid.Parse(r.PathValue("paramId"))
	if err != nil {
		h.httpError(w, "Invalid parameter id", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteParameter(r.Context(), paramID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Parameter not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to delete parameter", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func templateFromRequest(req *api.TemplateRequest) (*store.Template, string) {
	if req.Name == "" || req.Body == "" {
		return nil, "name and body are required"
	}

	kind := store.TemplateKind(req.Kind)
	switch kind {
	case store.TemplateKindRun:
		if req.MessageType != nil {
			return nil, "run templates cannot declare a message_type"
		}
	case store.TemplateKindMessage:
		if req.MessageType == nil || *req.MessageType == "" {
			return nil, "message templates require a message_type"
		}
	default:
		return nil, "kind must be run or message"
	}

	return &store.Template{
		Name:          req.Name,
		Kind:          kind,
		Body:          req.Body,
		MessageType:   req.MessageType,
		TargetJobType: req.TargetJobType,
	}, ""
}

func templateResponse(tmpl *store.Template) *api.TemplateResponse {
	resp := &api.TemplateResponse{
		ID:            tmpl.ID.String(),
		Name:          tmpl.Name,
		Kind:          string(tmpl.Kind),
		Body:          tmpl.Body,
		MessageType:   tmpl.MessageType,
		TargetJobType: tmpl.TargetJobType,
		Editable:      tmpl.Editable,
	}
	for i := range tmpl.Parameters {
		resp.Parameters = append(resp.Parameters, *parameterResponse(&tmpl.Parameters[i]))
	}
	return resp
}

func parameterResponse(p *store.TemplateParameter) *api.TemplateParameterResponse {
	return &api.TemplateParameterResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		Type:         p.Type,
		Required:     p.Required,
		DefaultValue: p.DefaultValue,
	}
}
