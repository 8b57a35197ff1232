package gemcert

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// BuildJSONSchema projects a schema's field definitions into a JSON Schema
// document. The document is returned to form clients for local validation
// and resolved at authoring time to reject malformed field sets.
func BuildJSONSchema(fields []FieldDefinition) map[string]any {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))

	for _, f := range fields {
		if f.FieldName == "" {
			continue
		}
		properties[f.FieldName] = propertySchema(f)
		if f.IsRequired {
			required = append(required, f.FieldName)
		}
	}

	doc := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func propertySchema(f FieldDefinition) map[string]any {
	prop := make(map[string]any)
	if f.Label != "" {
		prop["title"] = f.Label
	}
	if f.HelpText != "" {
		prop["description"] = f.HelpText
	}

	switch f.FieldType {
	case FieldTypeNumber:
		// Form clients submit numerics both as numbers and as strings.
		prop["type"] = []string{"number", "string"}
	case FieldTypeCheckbox:
		prop["type"] = "array"
		prop["items"] = map[string]any{"type": "string"}
	case FieldTypeComposite:
		subProps := make(map[string]any, len(f.SubFields))
		subRequired := make([]string, 0, len(f.SubFields))
		for _, sub := range f.SubFields {
			if sub.FieldName == "" {
				continue
			}
			subProps[sub.FieldName] = map[string]any{"type": []string{"number", "string"}}
			if sub.IsRequired {
				subRequired = append(subRequired, sub.FieldName)
			}
		}
		prop["type"] = "object"
		prop["properties"] = subProps
		if len(subRequired) > 0 {
			prop["required"] = subRequired
		}
	default:
		prop["type"] = "string"
	}

	// Creatable selects accept values outside the option list, so only
	// fixed-choice fields get an enum.
	if len(f.Options) > 0 && (f.FieldType == FieldTypeDropdown || f.FieldType == FieldTypeRadio) {
		enum := make([]any, len(f.Options))
		for i, opt := range f.Options {
			enum[i] = opt
		}
		prop["enum"] = enum
	}

	if v := f.Validation; v != nil {
		if v.MinLength != nil {
			prop["minLength"] = *v.MinLength
		}
		if v.MaxLength != nil {
			prop["maxLength"] = *v.MaxLength
		}
		if v.MinValue != nil {
			prop["minimum"] = *v.MinValue
		}
		if v.MaxValue != nil {
			prop["maximum"] = *v.MaxValue
		}
		if v.Pattern != "" {
			prop["pattern"] = v.Pattern
		}
	}

	return prop
}

// CompileFields resolves the projected JSON Schema for a field set. A
// resolution failure means the field set is malformed (for example an
// invalid validation pattern).
func CompileFields(fields []FieldDefinition) (*jsonschema.Resolved, error) {
	doc := BuildJSONSchema(fields)

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal field schema: %w", err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into jsonschema.Schema: %w", err)
	}

	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve field schema: %w", err)
	}

	return resolved, nil
}
