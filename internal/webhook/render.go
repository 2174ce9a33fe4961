package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// token is one piece of a parsed template string: either a literal or a
// {placeholder} name.
type token struct {
	literal     string
	placeholder string
}

// tokenize splits a template string into literal and placeholder tokens.
// Braces that do not form a {name} pair are kept as literals.
func tokenize(s string) []token {
	var tokens []token
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			tokens = append(tokens, token{literal: s})
			break
		}
		close_ := strings.IndexByte(s[open:], '}')
		if close_ < 0 {
			tokens = append(tokens, token{literal: s})
			break
		}
		close_ += open

		if open > 0 {
			tokens = append(tokens, token{literal: s[:open]})
		}
		name := s[open+1 : close_]
		if name == "" {
			tokens = append(tokens, token{literal: "{}"})
		} else {
			tokens = append(tokens, token{placeholder: name})
		}
		s = s[close_+1:]
	}
	return tokens
}

// renderString substitutes placeholders in one template string.
//
// When the whole string is a single placeholder the raw variable value is
// returned with its type intact, so `"{parameterValues}"` yields the
// object, not its string form. Otherwise substitution is textual and
// non-string values are JSON-encoded inline. Unknown placeholders are
// left as written.
func renderString(s string, vars map[string]any) any {
	tokens := tokenize(s)

	if len(tokens) == 1 && tokens[0].placeholder != "" {
		if v, ok := vars[tokens[0].placeholder]; ok {
			return v
		}
		return s
	}

	var b strings.Builder
	for _, tok := range tokens {
		if tok.placeholder == "" {
			b.WriteString(tok.literal)
			continue
		}
		v, ok := vars[tok.placeholder]
		if !ok {
			b.WriteString("{" + tok.placeholder + "}")
			continue
		}
		b.WriteString(stringify(v))
	}
	return b.String()
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}

// renderValue walks a parsed JSON value and substitutes placeholders in
// every string it contains.
func renderValue(v any, vars map[string]any) any {
	switch val := v.(type) {
	case string:
		return renderString(val, vars)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = renderValue(inner, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = renderValue(inner, vars)
		}
		return out
	default:
		return v
	}
}

// renderTemplate parses a custom payload template and substitutes
// placeholders against the variables map.
func renderTemplate(templateJSON string, vars map[string]any) (any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(templateJSON), &parsed); err != nil {
		return nil, fmt.Errorf("invalid payload template: %w", err)
	}
	return renderValue(parsed, vars), nil
}
