package results

import "encoding/json"

// defaultMaxRawBytes is the size ceiling applied to raw payloads before
// transform matching. Anything larger gets truncated so extraction cost
// stays bounded no matter what a provider returns.
const defaultMaxRawBytes = 1 << 20

// truncateOversized bounds the payload before the chain sees it. Strings
// are cut directly. For map payloads the decision uses the stringified
// size, but only string-valued fields actually shrink: a map dominated by
// non-string values can be flagged oversized without getting smaller, an
// accepted tradeoff for keeping the truncation pass simple.
func truncateOversized(payload any, limit int) (any, bool) {
	switch v := payload.(type) {
	case string:
		if len(v) > limit {
			return v[:limit], true
		}
		return v, false
	case map[string]any:
		encoded, err := json.Marshal(v)
		if err != nil || len(encoded) <= limit {
			return v, false
		}
		out := make(map[string]any, len(v))
		for key, field := range v {
			if s, ok := field.(string); ok && len(s) > limit {
				out[key] = s[:limit]
			} else {
				out[key] = field
			}
		}
		return out, true
	}
	return payload, false
}
