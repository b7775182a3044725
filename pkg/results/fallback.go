package results

import (
	"encoding/json"
	"regexp"
	"strings"
)

var numberedItemRe = regexp.MustCompile(`^\s*\d+[.):]\s*(.+)$`)

// minimalProjection is the infallible second tier. It degrades through
// progressively blunter parses and never fails, whatever the payload looks
// like. Answers come back pre-normalization so the builder can record the
// true extracted count before padding or truncating.
func minimalProjection(payload any, expected int) (Extraction, string) {
	text := rawText(payload)

	if arrayText, ok := jsonArrayText(payload); ok {
		var elements []any
		if err := json.Unmarshal([]byte(arrayText), &elements); err == nil {
			answers := make([]string, len(elements))
			for i, el := range elements {
				switch v := el.(type) {
				case nil:
					answers[i] = ""
				case string:
					answers[i] = v
				default:
					encoded, _ := json.Marshal(v)
					answers[i] = string(encoded)
				}
			}
			return Extraction{Answers: answers, Confidence: 0.6}, "minimal_json_array"
		}
	}

	if numbered := numberedItems(text); expected > 0 && len(numbered)*2 >= expected {
		return Extraction{Answers: numbered, Confidence: 0.5}, "minimal_numbered"
	}

	if lines := nonEmptyLines(text); len(lines) > 1 {
		return Extraction{Answers: lines, Confidence: 0.4}, "minimal_lines"
	}

	return Extraction{
		Answers:    []string{strings.TrimSpace(text)},
		Confidence: 0.35,
	}, "minimal_text"
}

func numberedItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	return items
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// normalizeCount pads with empty strings or truncates so the result has
// exactly expected elements. Zero expected means an empty list, never a
// single padded empty string.
func normalizeCount(answers []string, expected int) []string {
	if expected <= 0 {
		return []string{}
	}
	out := make([]string, expected)
	copy(out, answers)
	return out
}
