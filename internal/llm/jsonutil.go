package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// fencedBlockPattern matches content inside markdown code fences
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")
	// trailingCommaPattern matches trailing commas before ] or }
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls the first JSON object out of a model response. Responses
// may wrap the object in a code fence, surround it with prose or leave
// trailing commas behind. Returns "" when no object is found.
func ExtractJSON(content string) string {
	if matches := fencedBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		content = matches[1]
	}

	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	cleaned := trailingCommaPattern.ReplaceAllString(content[start:], "$1")

	// json.Decoder stops at the end of the first complete value, which
	// handles braces inside string literals.
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	var raw json.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		return ""
	}
	return string(raw)
}

// DecodeJSON extracts the first JSON object from content and unmarshals it into v.
func DecodeJSON(content string, v interface{}) error {
	raw := ExtractJSON(content)
	if raw == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(raw), v)
}
