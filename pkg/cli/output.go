package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat parses an output format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown output format %q", s)
	}
}

// WriteEnvelopes renders result envelopes to w in the chosen format. JSON
// output is the envelope list verbatim; text output is a per-command
// summary with numbered answers.
func WriteEnvelopes(w io.Writer, format OutputFormat, envelopes []pipeline.ResultEnvelope) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(envelopes)
	}

	for i, env := range envelopes {
		if len(envelopes) > 1 {
			fmt.Fprintf(w, "--- command %d ---\n", i+1)
		}
		if err := writeEnvelopeText(w, env); err != nil {
			return err
		}
	}
	return nil
}

func writeEnvelopeText(w io.Writer, env pipeline.ResultEnvelope) error {
	fmt.Fprintf(w, "status: %s (%s, confidence %.2f)\n",
		env.Status, env.ExtractionMethod, env.Confidence)
	for i, answer := range env.Answers {
		fmt.Fprintf(w, "%d. %s\n", i+1, strings.TrimSpace(answer))
	}
	for _, v := range env.ValidationWarnings {
		fmt.Fprintf(w, "warning [%s]: %s\n", v.Severity, v.Message)
	}
	if total, ok := env.Usage["total_tokens"]; ok {
		fmt.Fprintf(w, "tokens: %d\n", total)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteJSON renders any value as indented JSON, for non-envelope command
// output.
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
