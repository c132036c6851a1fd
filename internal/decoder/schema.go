package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Jetrug/companysheet/constants"
)

// BuildPayloadSchema returns a JSON-Schema (draft 2020-12 subset) describing
// the expected parse payload: one member per schema field, each either a
// value object, an array of value objects or scalars, or a bare scalar.
// Unknown members are tolerated; normalization drops them.
func BuildPayloadSchema() map[string]any {
	valueObject := map[string]any{
		"type":     "object",
		"required": []string{"value"},
		"properties": map[string]any{
			"value":      map[string]any{},
			"source":     map[string]any{"type": "array", "items": map[string]any{"type": "integer", "minimum": 0}},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
			"guess":      map[string]any{"type": "boolean"},
		},
	}
	scalar := map[string]any{"type": []string{"string", "number", "boolean"}}
	member := map[string]any{
		"oneOf": []any{
			valueObject,
			scalar,
			map[string]any{
				"type":  "array",
				"items": map[string]any{"oneOf": []any{valueObject, scalar}},
			},
		},
	}

	props := map[string]any{}
	for _, f := range constants.Fields() {
		props[string(f)] = member
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// ValidatePayloadShape validates data against the payload schema. Advisory:
// callers log a mismatch and continue with lenient normalization.
func ValidatePayloadShape(data []byte) error {
	b, err := json.Marshal(BuildPayloadSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("payload.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("payload.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
