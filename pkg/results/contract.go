package results

import (
	"fmt"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// Contract holds the structural expectations checked against every built
// envelope. Like schema validation, contract findings are record-only.
type Contract struct {
	// MinAnswerBytes and MaxAnswerBytes bound individual answer length.
	// Zero disables the corresponding check.
	MinAnswerBytes int
	MaxAnswerBytes int

	// RequiredFields names keys that must appear in the extraction's
	// structured data.
	RequiredFields []string
}

// Check compares the extracted answers against the contract. The
// pre-normalization count check uses the original count so the warning
// reflects true extraction fidelity, not the padded envelope. Padding
// empties are reported once through that count check, so the min-length
// check skips empty answers.
func (c Contract) Check(answers []string, structured map[string]any, originalCount, expected int) []pipeline.Violation {
	var violations []pipeline.Violation
	if originalCount != expected {
		violations = append(violations, pipeline.Violation{
			Message:  fmt.Sprintf("answer count mismatch: extracted %d, expected %d", originalCount, expected),
			Severity: "warning",
		})
	}
	for i, answer := range answers {
		if c.MinAnswerBytes > 0 && answer != "" && len(answer) < c.MinAnswerBytes {
			violations = append(violations, pipeline.Violation{
				Message:  fmt.Sprintf("answer %d shorter than %d bytes (%d)", i, c.MinAnswerBytes, len(answer)),
				Severity: "warning",
			})
		}
		if c.MaxAnswerBytes > 0 && len(answer) > c.MaxAnswerBytes {
			violations = append(violations, pipeline.Violation{
				Message:  fmt.Sprintf("answer %d exceeds %d bytes (%d)", i, c.MaxAnswerBytes, len(answer)),
				Severity: "warning",
			})
		}
	}
	for _, field := range c.RequiredFields {
		if _, ok := structured[field]; !ok {
			violations = append(violations, pipeline.Violation{
				Message:  fmt.Sprintf("required field %q missing from structured data", field),
				Severity: "warning",
			})
		}
	}
	return violations
}
