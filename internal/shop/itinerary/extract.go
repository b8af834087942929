package itinerary

import (
	"encoding/json"
	"regexp"
	"strings"
)

// parseStage tries to recover one JSON value from raw model text.
type parseStage struct {
	name  string
	parse func(text string) (any, bool)
}

// parseStages is tried in order; the first stage that succeeds wins.
var parseStages = []parseStage{
	{name: "direct", parse: parseDirect},
	{name: "fenced", parse: parseFenced},
	{name: "object", parse: func(text string) (any, bool) { return parseBalanced(text, '{', '}') }},
	{name: "array", parse: func(text string) (any, bool) { return parseBalanced(text, '[', ']') }},
}

// ParseResponse recovers the JSON value from raw model text. It returns the
// decoded tree and the name of the stage that produced it.
func ParseResponse(raw string) (any, string, error) {
	for _, stage := range parseStages {
		if v, ok := stage.parse(raw); ok {
			return v, stage.name, nil
		}
	}
	return nil, "", Fail(ErrModelResponseUnparseable, nil)
}

// decodeJSON accepts an object or an array, or a JSON string holding one.
func decodeJSON(text string) (any, bool) {
	return decodeContainer(text, 1)
}

func decodeContainer(text string, unwrap int) (any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any, []any:
		return v, true
	case string:
		if unwrap > 0 {
			return decodeContainer(t, unwrap-1)
		}
	}
	return nil, false
}

func parseDirect(text string) (any, bool) {
	return decodeJSON(text)
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

func parseFenced(text string) (any, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if v, ok := decodeJSON(m[1]); ok {
			return v, true
		}
	}
	return nil, false
}

// parseBalanced decodes the first balanced open...close span that is not
// nested inside another bracketed span. Brackets inside JSON strings are
// ignored. A candidate that does not decode, or that closes with the wrong
// bracket, is skipped. The text is scanned once.
func parseBalanced(text string, open, close byte) (any, bool) {
	var stack []byte
	start := -1
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			// quotes in surrounding prose are not JSON strings
			inString = len(stack) > 0
		case '{', '[':
			if len(stack) == 0 {
				start = i
			}
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			if stack[len(stack)-1] != pairOf(c) {
				// mismatched closer: the enclosing span cannot be JSON
				stack = stack[:0]
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 && text[start] == open && c == close {
				if v, ok := decodeJSON(text[start : i+1]); ok {
					return v, true
				}
			}
		}
	}
	return nil, false
}

func pairOf(closer byte) byte {
	if closer == '}' {
		return '{'
	}
	return '['
}
