package openai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Extraction failures are classified so callers (and tests) can tell "the
// model emitted broken JSON" apart from "the model emitted no JSON at all".
var (
	ErrNoJSON      = errors.New("no JSON found")
	ErrInvalidJSON = errors.New("invalid JSON format")
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ExtractJSON locates a JSON object embedded in freeform completion text:
// a fenced block labeled json wins, otherwise the first balanced
// brace-delimited span. The candidate must parse, or the extraction fails.
func ExtractJSON(text string) (json.RawMessage, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if !json.Valid([]byte(candidate)) {
			return nil, ErrInvalidJSON
		}
		return json.RawMessage(candidate), nil
	}

	candidate, ok := firstBraceSpan(text)
	if !ok {
		return nil, ErrNoJSON
	}
	if !json.Valid([]byte(candidate)) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(candidate), nil
}

// firstBraceSpan returns the first balanced {...} span in text. Braces
// inside string literals are skipped.
func firstBraceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	// Unbalanced span still counts as a candidate; it will fail parsing.
	return text[start:], true
}
