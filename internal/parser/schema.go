package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// nullableNumber is the schema fragment for a number-or-null field.
func nullableNumber() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "null"},
		},
	}
}

// ResponseSchema is the strict JSON schema the model output must satisfy.
// It is sent verbatim in the request (structured output) and also compiled
// locally to reject malformed responses before they reach reconciliation.
var ResponseSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"name":      map[string]any{"type": "string"},
					"spec":      map[string]any{"type": "string"},
					"qty":       nullableNumber(),
					"unitPrice": nullableNumber(),
					"amount":    nullableNumber(),
					"note":      map[string]any{"type": "string"},
				},
				"required": []any{"name", "spec", "qty", "unitPrice", "amount", "note"},
			},
		},
		"shipping":    nullableNumber(),
		"discount":    nullableNumber(),
		"statedTotal": nullableNumber(),
	},
	"required": []any{"items", "shipping", "discount", "statedTotal"},
}

var (
	compiledSchema     *jsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

func compiledResponseSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		b, err := json.Marshal(ResponseSchema)
		if err != nil {
			compileSchemaError = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("response.json", bytes.NewReader(b)); err != nil {
			compileSchemaError = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileSchemaError = compiler.Compile("response.json")
	})
	return compiledSchema, compileSchemaError
}

// ValidateResponse checks a model response against ResponseSchema.
func ValidateResponse(data []byte) error {
	schema, err := compiledResponseSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
