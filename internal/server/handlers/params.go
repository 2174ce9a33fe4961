package handlers

import (
	"fmt"
	"strings"

	"daqpanel/internal/store"
)

// resolveParameters merges parameter values for a template in precedence
// order: request values win over run-type defaults, which win over the
// parameter's own default. Returns an error naming the first required
// parameter left without a value.
func resolveParameters(tmpl *store.Template, typeDefaults, values map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(tmpl.Parameters))

	for _, p := range tmpl.Parameters {
		if v, ok := values[p.Name]; ok {
			resolved[p.Name] = v
			continue
		}
		if v, ok := typeDefaults[p.Name]; ok {
			resolved[p.Name] = v
			continue
		}
		if p.DefaultValue != nil {
			resolved[p.Name] = *p.DefaultValue
			continue
		}
		if p.Required {
			return nil, fmt.Errorf("missing required parameter %q", p.Name)
		}
	}

	return resolved, nil
}

// renderParameters substitutes {NAME} placeholders in a template body.
// Placeholder names are the uppercased parameter names.
func renderParameters(body string, values map[string]string) string {
	for name, value := range values {
		body = strings.ReplaceAll(body, "{"+strings.ToUpper(name)+"}", value)
	}
	return body
}

// upperKeys returns the values map rekeyed by uppercased parameter name,
// the form persisted with messages.
func upperKeys(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for name, value := range values {
		out[strings.ToUpper(name)] = value
	}
	return out
}
