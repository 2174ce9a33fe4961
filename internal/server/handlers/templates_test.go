package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"daqpanel/internal/store"

	"github.com/google/uuid"
)

func TestCreateTemplate(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "Run Template",
			body:           `{"name": "std", "kind": "run", "body": "{\"rate\": {RATE}}"}`,
			expectedStatus: http.StatusCreated,
			expectedInBody: `"editable":true`,
		},
		{
			name:           "Message Template",
			body:           `{"name": "thr", "kind": "message", "body": "{}", "message_type": "set_threshold"}`,
			expectedStatus: http.StatusCreated,
			expectedInBody: "set_threshold",
		},
		{
			name:           "Message Template Without Type",
			body:           `{"name": "thr", "kind": "message", "body": "{}"}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "require a message_type",
		},
		{
			name:           "Run Template With Message Type",
			body:           `{"name": "std", "kind": "run", "body": "{}", "message_type": "x"}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "cannot declare",
		},
		{
			name:           "Unknown Kind",
			body:           `{"name": "x", "kind": "cron", "body": "{}"}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "kind must be run or message",
		},
		{
			name:           "Missing Body",
			body:           `{"name": "x", "kind": "run"}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "name and body are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(&mockStore{}, nil, nil)

			req := httptest.NewRequest(http.MethodPost, "/templates", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()
			h.CreateTemplate(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v: %s",
					rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v",
					rr.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestUpdateTemplateNotEditable(t *testing.T) {
	mock := &mockStore{updateTemplateErr: store.ErrNotEditable}
	h := newTestHandlers(mock, nil, nil)

	templateID := uuid.New().String()
	req := httptest.NewRequest(http.MethodPut, "/templates/"+templateID,
		strings.NewReader(`{"name": "std", "kind": "run", "body": "{}"}`))
	req.SetPathValue("id", templateID)
	rr := httptest.NewRecorder()
	h.UpdateTemplate(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not editable") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestDeleteTemplate(t *testing.T) {
	tests := []struct {
		name           string
		deleteErr      error
		expectedStatus int
	}{
		{name: "Success", deleteErr: nil, expectedStatus: http.StatusOK},
		{name: "Not Editable", deleteErr: store.ErrNotEditable, expectedStatus: http.StatusConflict},
		{name: "Not Found", deleteErr: store.ErrNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStore{deleteTemplateErr: tt.deleteErr}
			h := newTestHandlers(mock, nil, nil)

			templateID := uuid.New().String()
			req := httptest.NewRequest(http.MethodDelete, "/templates/"+templateID, nil)
			req.SetPathValue("id", templateID)
			rr := httptest.NewRecorder()
			h.DeleteTemplate(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestAddTemplateParameter(t *testing.T) {
	mock := &mockStore{
		getTemplateResp: &store.Template{ID: uuid.New(), Kind: store.TemplateKindRun},
	}
	h := newTestHandlers(mock, nil, nil)

	templateID := uuid.New().String()
	req := httptest.NewRequest(http.MethodPost, "/templates/"+templateID+"/parameters",
		strings.NewReader(`{"name": "rate", "required": true}`))
	req.SetPathValue("id", templateID)
	rr := httptest.NewRecorder()
	h.AddTemplateParameter(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	// Omitted type falls back to string.
	if !strings.Contains(rr.Body.String(), `"type":"string"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestGetTemplateIncludesParameters(t *testing.T) {
	def := "1000"
	mock := &mockStore{
		getTemplateResp: &store.Template{
			ID:   uuid.New(),
			Name: "std",
			Kind: store.TemplateKindRun,
			Body: "{}",
			Parameters: []store.TemplateParameter{
				{ID: uuid.New(), Name: "rate", Type: "int", DefaultValue: &def},
			},
		},
	}
	h := newTestHandlers(mock, nil, nil)

	templateID := mock.getTemplateResp.ID.String()
	req := httptest.NewRequest(http.MethodGet, "/templates/"+templateID, nil)
	req.SetPathValue("id", templateID)
	rr := httptest.NewRecorder()
	h.GetTemplate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"rate"`) {
		t.Errorf("parameters missing: %s", rr.Body.String())
	}
}

func TestListTemplatesKindFilter(t *testing.T) {
	h := newTestHandlers(&mockStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/templates?kind=bogus", nil)
	rr := httptest.NewRecorder()
	h.ListTemplates(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
