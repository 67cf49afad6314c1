package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	lookupRequestSchema = mustCompile("lookup_request.json", map[string]any{
		"type":                 "object",
		"required":             []string{"pallet_ids"},
		"additionalProperties": false,
		"properties": map[string]any{
			"pallet_ids": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 1000,
				"items":    map[string]any{"type": "string", "maxLength": 256},
			},
		},
	})

	ingestRequestSchema = mustCompile("ingest_request.json", map[string]any{
		"type":                 "object",
		"required":             []string{"path"},
		"additionalProperties": false,
		"properties": map[string]any{
			"path":          map[string]any{"type": "string", "minLength": 1, "pattern": `(?i)\.pdf$`},
			"document_name": map[string]any{"type": "string", "maxLength": 512},
			"async":         map[string]any{"type": "boolean"},
		},
	})
)

// compileSchema compiles schemaMap under the given resource name.
func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func mustCompile(name string, schemaMap map[string]any) *jsonschema.Schema {
	s, err := compileSchema(name, schemaMap)
	if err != nil {
		panic(err)
	}
	return s
}

// validateJSON validates data against schema.
func validateJSON(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
