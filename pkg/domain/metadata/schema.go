package metadata

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const documentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object"
}`

const scalarDocumentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": ["string", "number", "integer", "boolean", "null"]
  }
}`

var (
	documentSchemaLoader       = gojsonschema.NewStringLoader(documentSchemaJSON)
	scalarDocumentSchemaLoader = gojsonschema.NewStringLoader(scalarDocumentSchemaJSON)
)

// Validator checks that a metadata document has the shape sidecars expect.
// In strict mode every top-level value must be a scalar.
type Validator struct {
	Strict bool
}

// NewValidator creates a Validator.
func NewValidator(strict bool) *Validator {
	return &Validator{Strict: strict}
}

// Validate returns an error describing every schema violation in md.
func (v *Validator) Validate(md Metadata) error {
	schema := documentSchemaLoader
	if v != nil && v.Strict {
		schema = scalarDocumentSchemaLoader
	}
	if md == nil {
		md = Metadata{}
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(map[string]any(md)))
	if err != nil {
		return fmt.Errorf("validate metadata: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("metadata does not match schema: %s", strings.Join(issues, "; "))
}
