package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Attribute keys whose values are always secret.
var secretKeys = map[string]struct{}{
	"api_key":       {},
	"apikey":        {},
	"authorization": {},
	"token":         {},
}

// apiKeyRe matches provider API key shapes wherever they appear inside a
// string value.
var apiKeyRe = regexp.MustCompile(`\b(sk|key|AIza)[-_][A-Za-z0-9_-]{8,}`)

// redactSecrets is the slog ReplaceAttr hook keeping credentials out of
// log output. Keys known to carry secrets are masked wholesale; other
// string values are scanned for key-shaped substrings.
func redactSecrets(_ []string, attr slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, "***")
	}
	if attr.Value.Kind() == slog.KindString {
		value := attr.Value.String()
		if apiKeyRe.MatchString(value) {
			return slog.String(attr.Key, apiKeyRe.ReplaceAllString(value, "***"))
		}
	}
	return attr
}
