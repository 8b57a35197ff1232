package gemcert

import (
	"regexp"
	"sort"
	"strings"
)

var (
	placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// RenderDescription substitutes {field_name} placeholders in a description
// template with submitted field values. Placeholders support dotted paths
// into composite values ("dimension.length"). Missing or empty values render
// as the empty string; runs of whitespace left behind collapse to a single
// space. The function is total over any template/value combination.
func RenderDescription(template string, values FieldValues) string {
	if template == "" {
		return ""
	}

	result := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSpace(match[1 : len(match)-1])
		return formatValue(values.Lookup(path))
	})

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(result, " "))
}

func formatValue(v FieldValue) string {
	if v.Kind() == KindObject {
		return formatCompositeValue(v)
	}
	return v.String()
}

// formatCompositeValue renders an object value. A value carrying all three
// dimension keys renders as "L x W x H" with empty parts dropped; anything
// else joins its non-empty leaves with commas in encounter order.
func formatCompositeValue(v FieldValue) string {
	length, hasLength := v.Get("length")
	width, hasWidth := v.Get("width")
	height, hasHeight := v.Get("height")
	if hasLength && hasWidth && hasHeight {
		parts := make([]string, 0, 3)
		for _, dim := range []FieldValue{length, width, height} {
			if s := dim.String(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " x ")
	}
	return v.String()
}

// AvailableTemplateFields lists the placeholder paths a schema's fields
// expose, including dotted paths for composite sub-fields, sorted for
// display.
func AvailableTemplateFields(fields []FieldDefinition) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.FieldName == "" {
			continue
		}
		names = append(names, f.FieldName)
		if f.FieldType == FieldTypeComposite {
			for _, sub := range f.SubFields {
				if sub.FieldName != "" {
					names = append(names, f.FieldName+"."+sub.FieldName)
				}
			}
		}
	}
	sort.Strings(names)
	return names
}
