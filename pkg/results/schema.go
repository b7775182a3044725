package results

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kaptinlin/jsonschema"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// SchemaValidator checks a raw payload against a compiled JSON Schema.
// Validation is record-only: findings become warnings on the envelope and
// never fail extraction.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// CompileSchema compiles raw JSON Schema bytes into a validator.
func CompileSchema(raw []byte) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compiling response schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Check validates the payload and returns its violations, sorted for
// deterministic envelopes.
func (v *SchemaValidator) Check(payload any) []pipeline.Violation {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return []pipeline.Violation{{
			Message:  fmt.Sprintf("schema check skipped, payload not encodable: %v", err),
			Severity: "warning",
		}}
	}
	result := v.schema.ValidateJSON(encoded)
	if result.IsValid() {
		return nil
	}

	keywords := make([]string, 0, len(result.Errors))
	for keyword := range result.Errors {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	violations := make([]pipeline.Violation, 0, len(keywords))
	for _, keyword := range keywords {
		violations = append(violations, pipeline.Violation{
			Message:  fmt.Sprintf("schema violation (%s): %v", keyword, result.Errors[keyword]),
			Severity: "warning",
		})
	}
	return violations
}
