// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RespondTool is the forced tool through which adapters realize an output
// schema.
const RespondTool = "respond"

// ErrNoStructuredOutput is returned when a response holds no parsable JSON
// object.
var ErrNoStructuredOutput = errors.New("no structured output in response")

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Structured locates the JSON object in a response. It tries, in order, the
// input of a respond tool_use block, a fenced code block in the text, and
// the first balanced {...} span in the text.
func Structured(resp *Response) (json.RawMessage, bool) {
	if resp == nil {
		return nil, false
	}
	for _, b := range resp.Content {
		if b.Type == BlockToolUse && b.Name == RespondTool && json.Valid(b.Input) {
			return b.Input, true
		}
	}

	text := resp.Text()
	if m := fencedJSON.FindStringSubmatch(text); m != nil && json.Valid([]byte(m[1])) {
		return json.RawMessage(m[1]), true
	}
	if span, ok := firstObject(text); ok {
		return json.RawMessage(span), true
	}
	return nil, false
}

// Decode unmarshals the structured part of resp into v. It wraps
// ErrNoStructuredOutput when nothing parses.
func Decode(resp *Response, v any) error {
	raw, ok := Structured(resp)
	if !ok {
		return ErrNoStructuredOutput
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding structured output: %w: %v", ErrNoStructuredOutput, err)
	}
	return nil
}

// firstObject returns the first balanced, valid JSON object in s. Braces
// inside string literals are skipped.
func firstObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > 0 {
			cand := s[start : end+1]
			if json.Valid([]byte(cand)) {
				return cand, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
