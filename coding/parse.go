package coding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ExtractArray recovers a JSON array from free-form model output. Models
// routinely wrap valid JSON in prose or code fences; the recovery ladder is:
// strip a fenced block, try the whole text, try the first '['..last ']'
// substring, then fall back to the first '{'..last '}' object treated as a
// one-element batch. Failure is all-or-nothing; the caller keeps the raw text.
func ExtractArray(text string) ([]json.RawMessage, error) {
	s := strings.TrimSpace(text)
	s = stripCodeFence(s)
	if s == "" {
		return nil, errors.New("empty model output")
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return arr, nil
	}

	if start := strings.IndexByte(s, '['); start != -1 {
		if end := strings.LastIndexByte(s, ']'); end > start {
			if err := json.Unmarshal([]byte(s[start:end+1]), &arr); err == nil {
				return arr, nil
			}
		}
	}

	if start := strings.IndexByte(s, '{'); start != -1 {
		if end := strings.LastIndexByte(s, '}'); end > start {
			sub := json.RawMessage(s[start : end+1])
			if json.Valid(sub) {
				return []json.RawMessage{sub}, nil
			}
		}
	}

	return nil, fmt.Errorf("no JSON array found in model output (len=%d)", len(s))
}

// stripCodeFence removes one surrounding ```-fence, including an optional
// language tag on the opening line. Text without a fence passes through.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := s[3:]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return s
	}
	rest = rest[nl+1:]
	if end := strings.LastIndex(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
