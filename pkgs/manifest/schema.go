package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaJSON is the structural contract for manifest documents. It is
// checked before decoding so shape errors surface with JSON-pointer
// locations instead of half-built trees.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://espalier-cmd.github.io/manifest.schema.json",
  "type": "object",
  "required": ["commands"],
  "additionalProperties": false,
  "properties": {
    "commands": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    }
  },
  "$defs": {
    "node": {
      "type": "object",
      "additionalProperties": false,
      "oneOf": [
        { "required": ["literal"] },
        { "required": ["argument", "type"] }
      ],
      "properties": {
        "literal": {
          "oneOf": [
            { "type": "string", "minLength": 1 },
            { "type": "array", "items": { "type": "string", "minLength": 1 }, "minItems": 1 }
          ]
        },
        "argument": { "type": "string", "minLength": 1 },
        "type": {
          "enum": ["integer", "float", "number", "text", "quotable_text", "greedy_text"]
        },
        "min": { "type": "number" },
        "max": { "type": "number" },
        "min_length": { "type": "integer", "minimum": 0 },
        "max_length": { "type": "integer", "minimum": 0 },
        "run": { "type": "string", "minLength": 1 },
        "require": { "type": "string", "minLength": 1 },
        "failure_message": { "type": "string" },
        "suggest": { "type": "array", "items": { "type": "string" } },
        "suggest_fn": { "type": "string", "minLength": 1 },
        "redirect": { "type": "string", "minLength": 1 },
        "children": { "type": "array", "items": { "$ref": "#/$defs/node" } }
      },
      "dependentSchemas": {
        "redirect": {
          "properties": { "children": { "maxItems": 0 } }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("manifest.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Validate checks raw manifest bytes against the embedded schema.
func Validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("schema compilation failed: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	return nil
}

// Parse validates and decodes a manifest document.
func Parse(data []byte) (Manifest, error) {
	if err := Validate(data); err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest decode failed: %w", err)
	}
	return m, nil
}
