package assets

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/values"
)

// kindToJSONSchemaType maps a shallow parameter Kind to the JSON Schema
// "type" keyword used to check it.
func kindToJSONSchemaType(k values.Kind) string {
	switch k {
	case values.KindInteger:
		return "integer"
	case values.KindNumber:
		return "number"
	case values.KindBoolean:
		return "boolean"
	case values.KindArray:
		return "array"
	case values.KindObject:
		return "object"
	default:
		return "string"
	}
}

// compileSchema builds a JSON Schema document from a ParameterSchema and
// compiles it. The schema rejects unexpected keys (additionalProperties:
// false) and requires presence of every required declaration; it does not
// check defaults, which are applied by the rendering engine rather than
// validated here, per the specification.
func compileSchema(id string, schema docmodel.ParameterSchema) (*jsonschema.Schema, error) {
	properties := make(map[string]any, len(schema))
	var required []string
	for _, p := range schema {
		properties[p.Name] = map[string]any{"type": kindToJSONSchemaType(p.Type)}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	doc := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	c := jsonschema.NewCompiler()
	resourceID := "docsmith://" + id + ".json"
	if err := c.AddResource(resourceID, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource %s: %w", id, err)
	}
	compiled, err := c.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", id, err)
	}
	return compiled, nil
}

// ValidateParameters checks values against schema: required presence, no
// unexpected keys, and shallow type of each value. It returns (true, nil)
// on success or (false, errorStrings) describing every violation found by
// the compiled JSON Schema.
func ValidateParameters(id string, schema docmodel.ParameterSchema, vals values.Map) (bool, []string) {
	compiled, err := compileSchema(id, schema)
	if err != nil {
		return false, []string{err.Error()}
	}

	// jsonschema validates against any, so round-trip through JSON to get
	// the same representation the wire would have produced (float64 for
	// numbers, etc.)
	raw, err := json.Marshal(vals)
	if err != nil {
		return false, []string{fmt.Sprintf("encoding parameters: %v", err)}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, []string{fmt.Sprintf("decoding parameters: %v", err)}
	}

	if err := compiled.Validate(doc); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return false, flattenValidationError(ve)
		}
		return false, []string{err.Error()}
	}
	return true, nil
}

// flattenValidationError walks a jsonschema validation error tree and
// collects one human-readable string per leaf cause.
func flattenValidationError(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, fmt.Sprintf("%s: %v", e.InstanceLocation, e.ErrorKind))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	if len(out) == 0 {
		out = []string{ve.Error()}
	}
	return out
}
