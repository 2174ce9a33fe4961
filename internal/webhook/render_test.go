package webhook

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRenderTextualSubstitution(t *testing.T) {
	vars := map[string]any{"id": float64(7), "description": "Cal run"}

	out, err := renderTemplate(`{"msg": "Run {id} - {description}"}`, vars)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	got := out.(map[string]any)
	if got["msg"] != "Run 7 - Cal run" {
		t.Errorf("got %q, want %q", got["msg"], "Run 7 - Cal run")
	}
}

func TestRenderWholeFieldKeepsType(t *testing.T) {
	vars := map[string]any{"parameterValues": map[string]any{"v": float64(1)}}

	out, err := renderTemplate(`{"params": "{parameterValues}"}`, vars)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	got := out.(map[string]any)
	params, ok := got["params"].(map[string]any)
	if !ok {
		t.Fatalf("params should be an object, got %T", got["params"])
	}
	if params["v"] != float64(1) {
		t.Errorf("got params %v", params)
	}
}

func TestRenderNonStringInlineIsJSONEncoded(t *testing.T) {
	vars := map[string]any{"values": map[string]any{"rate": float64(100)}}

	out, err := renderTemplate(`{"text": "got {values} today"}`, vars)
	if err != nil {
		t.Fatal(err)
	}

	got := out.(map[string]any)
	if got["text"] != `got {"rate":100} today` {
		t.Errorf("got %q", got["text"])
	}
}

func TestRenderUnknownPlaceholderLeftAsWritten(t *testing.T) {
	out, err := renderTemplate(`{"a": "{missing}", "b": "x {missing} y"}`, map[string]any{})
	if err != nil {
		t.Fatal(err)
	}

	got := out.(map[string]any)
	if got["a"] != "{missing}" {
		t.Errorf("got a=%q", got["a"])
	}
	if got["b"] != "x {missing} y" {
		t.Errorf("got b=%q", got["b"])
	}
}

func TestRenderNestedStructures(t *testing.T) {
	vars := map[string]any{"event": "run_started", "runId": "r-1"}
	tmpl := `{"outer": {"inner": ["{event}", "literal"], "run": "{runId}"}}`

	out, err := renderTemplate(tmpl, vars)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"outer": map[string]any{
			"inner": []any{"run_started", "literal"},
			"run":   "r-1",
		},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestRenderInvalidTemplate(t *testing.T) {
	if _, err := renderTemplate(`{not json`, map[string]any{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTokenizeBraceEdgeCases(t *testing.T) {
	tests := []struct {
		in   string
		vars map[string]any
		want string
	}{
		{"no placeholders", nil, "no placeholders"},
		{"dangling {brace", nil, "dangling {brace"},
		{"empty {} braces", nil, "empty {} braces"},
		{"{a}{b}", map[string]any{"a": "1", "b": "2"}, "12"},
	}

	for _, tt := range tests {
		got := renderString(tt.in, tt.vars)
		if got != tt.want {
			t.Errorf("renderString(%q) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderedPayloadMarshals(t *testing.T) {
	vars := map[string]any{"id": "r-9", "jobUids": []any{"j-1", "j-2"}}

	out, err := renderTemplate(`{"run": "{id}", "jobs": "{jobUids}"}`, vars)
	if err != nil {
		t.Fatal(err)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("rendered payload should marshal: %v", err)
	}
	if string(encoded) != `{"jobs":["j-1","j-2"],"run":"r-9"}` {
		t.Errorf("got %s", encoded)
	}
}
