package services

import (
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// ErrUnparseableModelOutput is returned when no scoreable JSON object can be
// recovered from the model response.
var ErrUnparseableModelOutput = errors.New("model output contains no parseable score object")

// modelScore is the parsed shape of a model scoring response.
type modelScore struct {
	Score    float64
	Reason   string
	Keywords []string
}

// scoreSchema enforces the minimum contract on recovered JSON: an object
// with a numeric score.
var scoreSchema = jsonschema.MustCompileString("score.json", `{
	"type": "object",
	"required": ["score"],
	"properties": {
		"score": {"type": "number"}
	}
}`)

// reasonAliases and keywordAliases tolerate the field-name drift observed
// across model families.
var (
	reasonAliases  = []string{"reasoning", "reason", "explanation"}
	keywordAliases = []string{"skills", "matchingKeywords", "matching_keywords", "keywords"}
)

// parseModelScore recovers a score object from raw model text. Markdown code
// fences are stripped and, when the payload is not a bare JSON object, the
// first balanced object in the text is extracted before parsing.
func parseModelScore(raw string) (modelScore, error) {
	payload := stripCodeFences(raw)
	if !gjson.Valid(payload) || !gjson.Parse(payload).IsObject() {
		extracted, ok := firstJSONObject(payload)
		if !ok {
			return modelScore{}, ErrUnparseableModelOutput
		}
		payload = extracted
	}

	doc := gjson.Parse(payload)
	if err := scoreSchema.Validate(doc.Value()); err != nil {
		return modelScore{}, ErrUnparseableModelOutput
	}

	parsed := modelScore{Score: doc.Get("score").Float()}
	for _, alias := range reasonAliases {
		if v := doc.Get(alias); v.Exists() {
			parsed.Reason = strings.TrimSpace(v.String())
			break
		}
	}
	for _, alias := range keywordAliases {
		v := doc.Get(alias)
		if !v.Exists() {
			continue
		}
		if v.IsArray() {
			for _, item := range v.Array() {
				if s := strings.TrimSpace(item.String()); s != "" {
					parsed.Keywords = append(parsed.Keywords, s)
				}
			}
		} else if s := strings.TrimSpace(v.String()); s != "" {
			for _, part := range strings.Split(s, ",") {
				if part = strings.TrimSpace(part); part != "" {
					parsed.Keywords = append(parsed.Keywords, part)
				}
			}
		}
		break
	}
	return parsed, nil
}

// stripCodeFences removes a surrounding markdown fence, including an
// optional language tag on the opening line.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "" || isFenceTag(firstLine) {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isFenceTag(line string) bool {
	for _, r := range line {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// firstJSONObject scans for the first balanced top-level JSON object,
// tracking string literals so braces inside strings do not miscount.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if gjson.Valid(candidate) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
