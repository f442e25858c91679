package synth

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// summarySchema describes the object the synthesis backend must return.
// No key is required: missing arrays are filled in during normalization.
const summarySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "finalAnswer": {"type": ["string", "null"]},
    "keyFacts": {"type": ["array", "null"], "items": {"type": "string"}},
    "disagreements": {"type": ["array", "null"], "items": {"type": "string"}},
    "sentences": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": ["string", "null"]},
          "citations": {"type": ["array", "null"], "items": {"type": ["number", "string", "null"]}},
          "confidence": {"type": ["number", "string", "null"]}
        }
      }
    }
  }
}`

var compiledSummarySchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(summarySchema))
	if err != nil {
		return nil, fmt.Errorf("compile summary schema: %w", err)
	}
	return schema, nil
})

// validateSummaryJSON checks the extracted object against summarySchema
func validateSummaryJSON(data []byte) error {
	schema, err := compiledSummarySchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("synthesis output does not match schema: %v", result.Errors)
}
