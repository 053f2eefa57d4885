package llmdriver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// rawDecision is the wire shape a model's terminal text is expected to
// decode into: the closed action vocabulary plus an optional raiseTo and
// free-text reasoning.
type rawDecision struct {
	Action    string `json:"action"`
	RaiseTo   *int   `json:"raiseTo"`
	Reasoning string `json:"reasoning"`
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractJSONObject finds a single balanced {...} object anywhere in text
// by brace counting, skipping over braces inside string literals. It
// returns the first complete top-level object found.
func extractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// parseDecision tolerantly extracts a decision from a model's terminal
// text (§4.8 step 3): plain JSON, JSON inside a fenced code block with or
// without a language tag, or JSON embedded in surrounding prose. If text is
// empty and reasoningChannel is not, reasoningChannel is tried instead -
// some models put their entire answer in a side reasoning field and leave
// the content channel empty.
func parseDecision(text, reasoningChannel string) (rawDecision, error) {
	candidates := candidateJSONs(text)
	if len(candidates) == 0 && strings.TrimSpace(text) == "" {
		candidates = candidateJSONs(reasoningChannel)
	}

	var lastErr error
	for _, c := range candidates {
		var d rawDecision
		if err := json.Unmarshal([]byte(c), &d); err != nil {
			lastErr = err
			continue
		}
		if d.Action == "" {
			lastErr = fmt.Errorf("llmdriver: decision missing \"action\" field")
			continue
		}
		return d, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("llmdriver: no JSON decision found in model output")
	}
	return rawDecision{}, lastErr
}

// candidateJSONs returns, in order of preference, every place a decision
// object might be hiding in text: the whole trimmed text as-is, the
// contents of each fenced code block, and any balanced {...} object found
// by brace scanning.
func candidateJSONs(text string) []string {
	var out []string

	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		out = append(out, trimmed)
	}

	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(m[1]); body != "" {
			out = append(out, body)
		}
	}

	if obj, ok := extractJSONObject(text); ok {
		out = append(out, obj)
	}

	return out
}
