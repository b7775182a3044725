package pipeline

import "fmt"

// EnvelopeStatus is the single source of truth for a command's outcome.
// Consumers derive error-ness from it, never from auxiliary flags.
type EnvelopeStatus string

const (
	// StatusOK means extraction produced the expected answers.
	StatusOK EnvelopeStatus = "ok"
	// StatusPartial means some answers were extracted but count or shape
	// did not fully match expectations.
	StatusPartial EnvelopeStatus = "partial"
	// StatusError means generation itself failed, post-fallback.
	StatusError EnvelopeStatus = "error"
)

// Violation is a record-only schema or contract finding. Violations never
// fail extraction; they surface as validation warnings.
type Violation struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ResultEnvelope is the stable terminal artifact of the pipeline. Status,
// Answers, ExtractionMethod and Confidence are always present; everything
// else is optional enrichment.
type ResultEnvelope struct {
	Status           EnvelopeStatus `json:"status"`
	Answers          []string       `json:"answers"`
	ExtractionMethod string         `json:"extraction_method"`
	Confidence       float64        `json:"confidence"`

	// StructuredData carries extractor-specific structure when a
	// transform produced more than flat answers.
	StructuredData map[string]any `json:"structured_data,omitempty"`

	// Metrics holds execution measurements (durations, token accuracy).
	Metrics map[string]any `json:"metrics,omitempty"`

	// Usage is the provider-reported token accounting.
	Usage map[string]int `json:"usage,omitempty"`

	// Diagnostics is the full extraction audit trail when enabled.
	Diagnostics map[string]any `json:"diagnostics,omitempty"`

	// ValidationWarnings are record-only schema/contract findings.
	ValidationWarnings []Violation `json:"validation_warnings,omitempty"`
}

// Validate enforces the envelope contract checked at the consumer seam.
func (e ResultEnvelope) Validate() error {
	switch e.Status {
	case StatusOK, StatusPartial, StatusError:
	default:
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", e.Status)}
	}
	if e.Answers == nil {
		return &ValidationError{Field: "answers", Message: "answers must be present (may be empty, not nil)"}
	}
	if e.ExtractionMethod == "" {
		return &ValidationError{Field: "extraction_method", Message: "extraction method must be present"}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &ValidationError{Field: "confidence", Message: fmt.Sprintf("confidence %v outside [0,1]", e.Confidence)}
	}
	return nil
}
