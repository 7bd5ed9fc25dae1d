// Package json provides lenient decoding of untrusted JSON emitted by LLM
// providers.
//
// Providers occasionally wrap tool-call arguments in markdown code blocks or
// surround them with commentary. Decoding tries strict parsing first, then
// falls back to extracting the embedded JSON object.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeArguments parses a tool call's argument payload into a map. Empty or
// whitespace-only payloads decode to an empty map, matching a call with no
// arguments.
//
// Limitations:
// - Only handles JSON objects, not arrays
// - Uses simple brace matching, not full JSON parsing
func DecodeArguments(raw []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return map[string]any{}, nil
	}

	args := map[string]any{}
	if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
		return args, nil
	}

	extracted, err := extractObject(trimmed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(extracted), &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return args, nil
}

// extractObject finds the JSON object portion of a provider payload: either
// the whole payload after stripping markdown fences, or the span from the
// first '{' to the last '}'.
func extractObject(payload string) (string, error) {
	payload = stripMarkdownCodeBlocks(payload)

	var probe any
	if err := json.Unmarshal([]byte(payload), &probe); err == nil {
		return payload, nil
	}

	start := strings.Index(payload, "{")
	if start != -1 {
		end := strings.LastIndex(payload, "}")
		if end > start {
			candidate := payload[start : end+1]
			if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
				return candidate, nil
			}
		}
	}

	preview := payload
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON object in payload: %q", preview)
}

// stripMarkdownCodeBlocks removes code block markers from a payload.
// Handles patterns like ```json\n...\n``` or ```\n...\n```
func stripMarkdownCodeBlocks(payload string) string {
	trimmed := strings.TrimSpace(payload)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimSpace(trimmed)
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	return trimmed
}
