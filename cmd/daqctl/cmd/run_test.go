package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
}

func TestRunStartCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/runs" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Auth-Request-User") != "alice" {
			t.Errorf("expected asserted user, got: %s", r.Header.Get("X-Auth-Request-User"))
		}

		var reqBody map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if reqBody["client_id"] != "daq-01" {
			t.Errorf("expected client_id=daq-01, got %v", reqBody["client_id"])
		}
		params, _ := reqBody["parameter_values"].(map[string]interface{})
		if params["rate"] != "2000" {
			t.Errorf("expected rate=2000, got %v", params["rate"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "run-123",
			"status":   "RUNNING",
			"job_uids": []string{"uid-1"},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"run", "start",
		"--client", "daq-01",
		"--template", "9f0c2f64-0000-0000-0000-000000000000",
		"--param", "rate=2000"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Run started") {
		t.Errorf("expected success message, got: %s", output)
	}
	if !strings.Contains(output, "run-123") {
		t.Errorf("expected run ID in output, got: %s", output)
	}
}

func TestRunStartCommand_Conflict(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "A run is already active for this client"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"run", "start",
		"--client", "daq-01",
		"--template", "9f0c2f64-0000-0000-0000-000000000000"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "already active") {
		t.Errorf("expected conflict message, got: %s", output)
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    map[string]string
		wantErr bool
	}{
		{name: "Empty", input: nil, want: nil},
		{name: "Single", input: []string{"rate=2000"}, want: map[string]string{"rate": "2000"}},
		{name: "Value With Equals", input: []string{"expr=a=b"}, want: map[string]string{"expr": "a=b"}},
		{name: "Missing Value Separator", input: []string{"rate"}, wantErr: true},
		{name: "Empty Name", input: []string{"=5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseParams error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("param %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
