package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/nadzzz/cutline/internal/tool"
)

// Decode parses an LLM's raw text output. It strips a surrounding markdown
// fence and enforces the output object's exact shape; whitelist and argument
// checks are left to tool.Validate. Shape violations wrap ErrTransport.
func Decode(text string) (*Response, error) {
	text = StripFences(text)
	if text == "" {
		return nil, malformed("empty output")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}

	if msg, ok := raw["error"]; ok {
		var e *string
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, malformed("error must be a string or null")
		}
		if e != nil && strings.TrimSpace(*e) != "" {
			return Failed("%s", strings.TrimSpace(*e)), nil
		}
		delete(raw, "error")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"clarification_question", "needs_clarification", "tool_calls"}) {
		return nil, malformed("keys must be exactly tool_calls, needs_clarification, clarification_question (got %s)", strings.Join(keys, ", "))
	}

	var needs bool
	if err := json.Unmarshal(raw["needs_clarification"], &needs); err != nil {
		return nil, malformed("needs_clarification must be a boolean")
	}
	var question *string
	if err := json.Unmarshal(raw["clarification_question"], &question); err != nil {
		return nil, malformed("clarification_question must be a string or null")
	}
	var calls []map[string]json.RawMessage
	if err := json.Unmarshal(raw["tool_calls"], &calls); err != nil || calls == nil && !isEmptyList(raw["tool_calls"]) {
		return nil, malformed("tool_calls must be a list of objects")
	}

	if needs {
		if len(calls) > 0 {
			return nil, malformed("clarification cannot include tool_calls")
		}
		if question == nil || strings.TrimSpace(*question) == "" {
			return nil, malformed("clarification_question must be non-empty")
		}
		return Clarify(strings.TrimSpace(*question)), nil
	}

	if question != nil {
		return nil, malformed("clarification_question must be null when needs_clarification is false")
	}
	if len(calls) == 0 {
		return nil, malformed("tool_calls cannot be empty")
	}

	out := make([]tool.ToolCall, 0, len(calls))
	for i, c := range calls {
		if len(c) != 2 || c["name"] == nil || c["args"] == nil {
			return nil, malformed("tool_call %d must contain only name and args", i)
		}
		var tc tool.ToolCall
		if err := json.Unmarshal(c["name"], &tc.Name); err != nil {
			return nil, malformed("tool_call %d: name must be a string", i)
		}
		if err := json.Unmarshal(c["args"], &tc.Args); err != nil || tc.Args == nil {
			return nil, malformed("tool_call %d: args must be an object", i)
		}
		out = append(out, tc)
	}
	return Planned(out...), nil
}

// StripFences removes a ```json ... ``` wrapper some models add.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isEmptyList(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("[]"))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: malformed response: %s", ErrTransport, fmt.Sprintf(format, args...))
}
