package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ExtractJSON locates the first syntactically valid JSON object or array
// inside raw model output. Models routinely prepend prose or wrap the
// payload in markdown code fences; candidates are tried in order: the raw
// text, the fence-stripped text, and the outermost brace/bracket span.
func ExtractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty model output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize model JSON: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, fmt.Errorf("no valid JSON found in model output")
}

// Parse extracts JSON from raw model output, validates it against schema
// (when non-nil), and unmarshals it into v. Any failure is returned as an
// error for the caller to swallow into its kind's empty result.
func Parse(raw string, schema map[string]any, v any) error {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if schema != nil {
		if err := ValidateSchema(schema, payload); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("model JSON does not match expected shape: %w", err)
	}
	return nil
}

// ValidateSchema validates parsed JSON against a schema document.
func ValidateSchema(schema map[string]any, payload json.RawMessage) error {
	schemaRaw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to serialize schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaRaw)); err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("failed to decode JSON for validation: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("model output does not match schema: %w", err)
	}
	return nil
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start := -1
	closeChar := ""
	switch {
	case objectStart >= 0 && arrayStart >= 0:
		if objectStart < arrayStart {
			start = objectStart
			closeChar = "}"
		} else {
			start = arrayStart
			closeChar = "]"
		}
	case objectStart >= 0:
		start = objectStart
		closeChar = "}"
	case arrayStart >= 0:
		start = arrayStart
		closeChar = "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}
