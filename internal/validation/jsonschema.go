// Package validation checks serialized mapping documents against a JSON
// Schema before the registries resolve their polymorphic parts, so a host
// gets one structural report instead of the first deserialization error.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rowmap/rowmap/pkg/schema"
)

// documentSchemaJSON is the JSON Schema for mapping documents. Embedded as a
// constant to avoid filesystem dependencies. Rule, transformation and
// comparison objects are open except for the typeId discriminator: their
// concrete shape belongs to the registered variant.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://rowmap.dev/schemas/mapping.json",
  "type": "object",
  "required": ["fields"],
  "properties": {
    "id": { "type": "string" },
    "name": { "type": "string" },
    "fields": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/fieldMapping" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "fieldMapping": {
      "type": "object",
      "required": ["targetField", "rule"],
      "properties": {
        "targetField": {
          "type": "string",
          "minLength": 1
        },
        "rule": { "$ref": "#/$defs/typed" }
      },
      "additionalProperties": false
    },
    "typed": {
      "type": "object",
      "anyOf": [
        { "required": ["typeId"] },
        { "required": ["TypeId"] }
      ],
      "properties": {
        "typeId": { "type": "string", "minLength": 1 },
        "TypeId": { "type": "string", "minLength": 1 },
        "sourceFields": {
          "type": "array",
          "items": { "$ref": "#/$defs/fieldTransformation" }
        }
      }
    },
    "fieldTransformation": {
      "type": "object",
      "required": ["field"],
      "properties": {
        "field": { "type": "string", "minLength": 1 },
        "transformations": {
          "type": "array",
          "items": { "$ref": "#/$defs/typed" }
        }
      }
    }
  }
}`

// DocumentValidator validates serialized mapping documents against the
// embedded JSON Schema. It is safe for concurrent use.
type DocumentValidator struct {
	documentSchema *jsonschema.Schema
}

// NewDocumentValidator creates a DocumentValidator with the mapping schema
// pre-compiled.
func NewDocumentValidator() (*DocumentValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal mapping schema: %w", err)
	}
	if err := c.AddResource("https://rowmap.dev/schemas/mapping.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add mapping schema resource: %w", err)
	}

	compiled, err := c.Compile("https://rowmap.dev/schemas/mapping.json")
	if err != nil {
		return nil, fmt.Errorf("compile mapping schema: %w", err)
	}

	return &DocumentValidator{documentSchema: compiled}, nil
}

// ValidateDocument validates raw mapping document bytes. Structural checks
// JSON Schema cannot express (duplicate target fields) run afterwards.
func (v *DocumentValidator) ValidateDocument(raw []byte) error {
	if len(raw) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "mapping document is empty")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "mapping document is not valid JSON").WithCause(err)
	}

	if err := v.documentSchema.Validate(doc); err != nil {
		return toMappingError(err)
	}

	return checkDuplicateTargets(doc)
}

// checkDuplicateTargets rejects documents mapping the same target field twice.
func checkDuplicateTargets(doc any) error {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	fields, ok := root["fields"].([]any)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		target, _ := fm["targetField"].(string)
		if target == "" {
			continue
		}
		if _, exists := seen[target]; exists {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate target field %q", target)
		}
		seen[target] = struct{}{}
	}
	return nil
}

// toMappingError converts a jsonschema validation error into the structured
// error type, flattening the cause chain into one readable message.
func toMappingError(err error) error {
	var valErr *jsonschema.ValidationError
	if errors.As(err, &valErr) {
		return schema.NewErrorf(schema.ErrCodeValidation, "mapping document invalid: %s", valErr.Error()).
			WithCause(err)
	}
	return schema.NewError(schema.ErrCodeValidation, "mapping document invalid").WithCause(err)
}
