package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"daqpanel/internal/gateway"
	"daqpanel/internal/statuscache"
)

func TestListClients(t *testing.T) {
	cache := &mockCache{
		clients: []gateway.ClientInfo{
			{ID: "daq-01", Hostname: "rack1.lab", Tags: []string{"tpc"}},
			{ID: "daq-02", Hostname: "rack2.lab"},
		},
		snapshots: map[string]*statuscache.Snapshot{
			"daq-01": {ClientID: "daq-01", Connected: true},
			"daq-02": {ClientID: "daq-02", Connected: false},
		},
	}
	h := newTestHandlers(&mockStore{}, cache, nil)

	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	rr := httptest.NewRecorder()
	h.ListClients(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"id":"daq-01"`) || !strings.Contains(body, `"connected":true`) {
		t.Errorf("body = %s", body)
	}
	if !strings.Contains(body, `"connected":false`) {
		t.Errorf("offline client not flagged: %s", body)
	}
}

func TestGetClientStatusUnknown(t *testing.T) {
	h := newTestHandlers(&mockStore{}, &mockCache{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/clients/ghost/status", nil)
	req.SetPathValue("id", "ghost")
	rr := httptest.NewRecorder()
	h.GetClientStatus(rr, req)

	// Unknown clients answer 200 with a null body, never an error.
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "null" {
		t.Errorf("body = %q, want null", rr.Body.String())
	}
}

func TestGetClientLogsUnknownIsEmptyList(t *testing.T) {
	cache := &mockCache{logs: map[string][]gateway.LogEntry{}}
	h := newTestHandlers(&mockStore{}, cache, nil)

	req := httptest.NewRequest(http.MethodGet, "/clients/ghost/logs", nil)
	req.SetPathValue("id", "ghost")
	rr := httptest.NewRecorder()
	h.GetClientLogs(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := strings.TrimSpace(rr.Body.String())
	if got != "[]" && got != "null" {
		t.Errorf("body = %q", got)
	}
}

func TestRestartClient(t *testing.T) {
	tests := []struct {
		name           string
		restartErr     error
		expectedStatus int
	}{
		{name: "Success", restartErr: nil, expectedStatus: http.StatusOK},
		{name: "Gateway Failure", restartErr: errors.New("unreachable"), expectedStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daq := &mockGateway{restartErr: tt.restartErr}
			h := newTestHandlers(&mockStore{}, nil, daq)

			req := httptest.NewRequest(http.MethodPost, "/clients/daq-01/restart", nil)
			req.SetPathValue("id", "daq-01")
			rr := httptest.NewRecorder()
			h.RestartClient(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestGetJobSchemasProxied(t *testing.T) {
	daq := &mockGateway{jobSchemasResp: []byte(`{"readout": {"type": "object"}}`)}
	h := newTestHandlers(&mockStore{}, nil, daq)

	req := httptest.NewRequest(http.MethodGet, "/clients/daq-01/schemas/jobs", nil)
	req.SetPathValue("id", "daq-01")
	rr := httptest.NewRecorder()
	h.GetJobSchemas(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "readout") {
		t.Errorf("body = %s", rr.Body.String())
	}
}
