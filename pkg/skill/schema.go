package skill

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

// BuildParameterSchema compiles a JSON Schema document from a Tool
// Definition's parameter list; ValidateConfigAgainstSchema checks a config
// map against it. The Executor's validate-config call and the generation
// validator do not use this schema.
func BuildParameterSchema(params []ToolParameter) (*jsonschema.Schema, error) {
	properties := map[string]any{}
	var required []string

	for _, p := range params {
		properties[p.Name] = jsonTypeFor(p.Type)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	compiler := jsonschema.NewCompiler()
	url := "skill-param-schema.json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "add parameter schema resource", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "compile parameter schema", err)
	}
	return schema, nil
}

func jsonTypeFor(t ParamType) map[string]any {
	switch t {
	case ParamNumber:
		return map[string]any{"type": "number"}
	case ParamBoolean:
		return map[string]any{"type": "boolean"}
	case ParamArray:
		return map[string]any{"type": "array"}
	case ParamJSON:
		return map[string]any{} // any shape
	default: // string, file
		return map[string]any{"type": "string"}
	}
}

// ValidateConfigAgainstSchema validates an instance config map against a
// compiled parameter schema, returning an InvalidInput error describing the
// first violation.
func ValidateConfigAgainstSchema(schema *jsonschema.Schema, config map[string]ConfigEntry) error {
	instance := make(map[string]any, len(config))
	for k, v := range config {
		instance[k] = v.Value
	}
	// Round-trip through JSON to get the same type normalization the schema
	// library expects (map[string]any, not custom structs).
	b, err := json.Marshal(instance)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, "marshal config for validation", err)
	}
	var data any
	if err := json.Unmarshal(b, &data); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "unmarshal config for validation", err)
	}
	if err := schema.Validate(data); err != nil {
		return apperr.Wrap(apperr.InvalidInput, fmt.Sprintf("config validation failed: %v", err), err)
	}
	return nil
}
