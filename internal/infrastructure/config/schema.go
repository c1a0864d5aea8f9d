package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/autotag/pkg/domain"
)

// Schema returns the JSON schema of the configuration file. Unknown keys are
// not allowed at any level except tagging.static_fields.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		FieldNameTag:               "yaml",
		Mapper:                     mapType,
	}
	s := r.Reflect(&Config{})
	if s.Version == "" {
		s.Version = jsonschema.Version
	}
	s.Title = "autotag configuration"
	return s
}

// durations are written as "30s" but may also be a number of nanoseconds.
func mapType(t reflect.Type) *jsonschema.Schema {
	if t == reflect.TypeOf(time.Duration(0)) {
		return &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{
				{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`},
				{Type: "integer", Minimum: json.Number("0")},
			},
		}
	}
	return nil
}

// ValidateDocument checks the raw configuration file contents against
// Schema. It catches misspelled keys, which Load silently ignores.
func ValidateDocument(path string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	raw := map[string]any{}
	if IsTOML(path) {
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return &domain.ConfigurationError{Field: "config", Value: path, Reason: "invalid TOML", Err: err}
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return &domain.ConfigurationError{Field: "config", Value: path, Reason: "invalid YAML", Err: err}
	}

	schemaJSON, err := json.Marshal(Schema())
	if err != nil {
		return fmt.Errorf("encode config schema: %w", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &domain.ConfigurationError{Field: "config", Value: path, Reason: strings.Join(issues, "; ")}
}
