package results

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Extraction is the output of one transform's extractor: the answers it
// recovered plus its own confidence in them.
type Extraction struct {
	// Answers are the extracted strings, pre-normalization.
	Answers []string

	// Confidence is the transform's confidence in the extraction.
	Confidence float64

	// Structured carries extractor-specific structure beyond flat answers.
	Structured map[string]any
}

// TransformSpec is one prioritized extraction rule in the transform chain.
// Extractors must be pure: same payload, same extraction. An extractor
// error is caught by the chain and recorded, never propagated.
type TransformSpec struct {
	// Name identifies the transform and breaks priority ties
	// alphabetically.
	Name string

	// Priority orders the chain; higher runs first.
	Priority int

	// Matches reports whether the extractor should run on this payload.
	Matches func(payload any) bool

	// Extract recovers answers from a matched payload.
	Extract func(payload any) (Extraction, error)
}

// builtinTransforms returns the default chain. Order here is irrelevant;
// the builder sorts by (priority desc, name asc).
func builtinTransforms() []TransformSpec {
	return []TransformSpec{
		{
			Name:     "batch_response",
			Priority: 100,
			Matches:  matchBatch,
			Extract:  extractBatch,
		},
		{
			Name:     "json_array",
			Priority: 80,
			Matches:  matchJSONArray,
			Extract:  extractJSONArray,
		},
		{
			Name:     "provider_candidates",
			Priority: 60,
			Matches:  matchCandidates,
			Extract:  extractCandidates,
		},
		{
			Name:     "markdown_list",
			Priority: 40,
			Matches:  matchMarkdownList,
			Extract:  extractMarkdownList,
		},
	}
}

func matchBatch(payload any) bool {
	m, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m["batch"].([]any)
	return ok
}

// extractBatch coerces each batch item to a string through a fixed set of
// shape checks. An unknown shape becomes an empty string, never an error.
func extractBatch(payload any) (Extraction, error) {
	items := payload.(map[string]any)["batch"].([]any)
	answers := make([]string, len(items))
	for i, item := range items {
		answers[i] = coerceBatchItem(item)
	}
	return Extraction{Answers: answers, Confidence: 0.9}, nil
}

func coerceBatchItem(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
		if text := firstCandidateText(v); text != "" {
			return text
		}
	}
	return ""
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func jsonArrayText(payload any) (string, bool) {
	text := rawText(payload)
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		return trimmed, true
	}
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "[") && strings.HasSuffix(body, "]") {
			return body, true
		}
	}
	return "", false
}

func matchJSONArray(payload any) bool {
	_, ok := jsonArrayText(payload)
	return ok
}

// extractJSONArray parses the response text as a JSON array, unwrapping a
// markdown code fence when present. Null elements normalize to "".
func extractJSONArray(payload any) (Extraction, error) {
	text, _ := jsonArrayText(payload)
	var elements []any
	if err := json.Unmarshal([]byte(text), &elements); err != nil {
		return Extraction{}, fmt.Errorf("parsing json array: %w", err)
	}
	answers := make([]string, len(elements))
	for i, el := range elements {
		switch v := el.(type) {
		case nil:
			answers[i] = ""
		case string:
			answers[i] = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return Extraction{}, fmt.Errorf("re-encoding element %d: %w", i, err)
			}
			answers[i] = string(encoded)
		}
	}
	return Extraction{Answers: answers, Confidence: 0.95}, nil
}

func matchCandidates(payload any) bool {
	m, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	for _, key := range []string{"candidates", "choices", "content"} {
		if _, ok := m[key].([]any); ok {
			return true
		}
	}
	return false
}

// extractCandidates navigates a provider-normalized candidate shape and
// pulls the first text it finds.
func extractCandidates(payload any) (Extraction, error) {
	text := firstCandidateText(payload.(map[string]any))
	if text == "" {
		return Extraction{}, fmt.Errorf("no text part in candidate structure")
	}
	return Extraction{Answers: []string{text}, Confidence: 0.85}, nil
}

// firstCandidateText walks the nested candidate/choice/content shapes the
// provider adapters decode. Any missing level yields "".
func firstCandidateText(m map[string]any) string {
	if candidates, ok := m["candidates"].([]any); ok && len(candidates) > 0 {
		if cand, ok := candidates[0].(map[string]any); ok {
			if content, ok := cand["content"].(map[string]any); ok {
				if text := firstPartText(content["parts"]); text != "" {
					return text
				}
			}
		}
	}
	if choices, ok := m["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if text, ok := msg["content"].(string); ok {
					return text
				}
			}
		}
	}
	if blocks, ok := m["content"].([]any); ok {
		if text := firstPartText(blocks); text != "" {
			return text
		}
	}
	return ""
}

func firstPartText(parts any) string {
	list, ok := parts.([]any)
	if !ok {
		return ""
	}
	for _, part := range list {
		if pm, ok := part.(map[string]any); ok {
			if text, ok := pm["text"].(string); ok && text != "" {
				return text
			}
		}
	}
	return ""
}

var markdownItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)

func matchMarkdownList(payload any) bool {
	return len(markdownItems(rawText(payload))) > 0
}

func extractMarkdownList(payload any) (Extraction, error) {
	items := markdownItems(rawText(payload))
	if len(items) == 0 {
		return Extraction{}, fmt.Errorf("no list items")
	}
	return Extraction{Answers: items, Confidence: 0.7}, nil
}

func markdownItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := markdownItemRe.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	return items
}

// rawText reduces a payload to its best text rendering: a plain string, a
// {"text": ...} wrapper, or the first text inside a provider candidate
// shape. Anything else renders empty.
func rawText(payload any) string {
	switch v := payload.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
		return firstCandidateText(v)
	}
	return ""
}
