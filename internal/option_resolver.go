package internal

import (
	"context"
	"fmt"
	"sort"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type attributeLister interface {
	List(ctx context.Context, group, attrType, search string) ([]*gemcert.Attribute, error)
}

type activeSchemaSource interface {
	ActiveForGroup(ctx context.Context, group string) (*gemcert.CategorySchema, error)
}

// OptionResolver enriches option-bearing fields with the current attribute
// catalog at read time. No caching: admins expect a newly added attribute
// to appear on the next form load.
type OptionResolver struct {
	catalog attributeLister
}

func NewOptionResolver(catalog attributeLister) *OptionResolver {
	return &OptionResolver{catalog: catalog}
}

// Resolve returns the option list for one field. Attributes whose type
// matches the field name win over the schema-defined options; when the
// catalog has none, the schema's own options stand.
func (o *OptionResolver) Resolve(ctx context.Context, group string, field gemcert.FieldDefinition) ([]string, error) {
	if !field.FieldType.OptionBearing() {
		return nil, nil
	}
	attrs, err := o.catalog.List(ctx, group, field.FieldName, "")
	if err != nil {
		return nil, fmt.Errorf("resolve options for %s: %w", field.FieldName, err)
	}
	if len(attrs) == 0 {
		return field.Options, nil
	}
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	sort.Strings(names)
	return names, nil
}

// FormProvider builds the client-facing projection of a group's active
// schema: display-ordered fields with resolved options plus the compiled
// JSON Schema.
type FormProvider struct {
	registry activeSchemaSource
	resolver *OptionResolver
}

func NewFormProvider(registry activeSchemaSource, resolver *OptionResolver) *FormProvider {
	return &FormProvider{registry: registry, resolver: resolver}
}

func (p *FormProvider) FormSchemaForGroup(ctx context.Context, group string) (*gemcert.FormSchema, error) {
	schema, err := p.registry.ActiveForGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, gemcert.NewSchemaNotFoundError(group)
	}

	fields := make([]gemcert.FormField, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		options, err := p.resolver.Resolve(ctx, group, f)
		if err != nil {
			return nil, err
		}
		fields = append(fields, gemcert.FormField{
			FieldDefinition: f,
			ResolvedOptions: options,
		})
	}

	return &gemcert.FormSchema{
		SchemaID:   schema.UUID,
		Name:       schema.Name,
		Group:      schema.Group,
		Fields:     fields,
		JSONSchema: gemcert.BuildJSONSchema(schema.Fields),
	}, nil
}

func (p *FormProvider) ManageableFields(ctx context.Context, group string) ([]gemcert.FieldDefinition, error) {
	schema, err := p.registry.ActiveForGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, gemcert.NewSchemaNotFoundError(group)
	}

	fields := []gemcert.FieldDefinition{}
	for _, f := range schema.Fields {
		if f.FieldType.OptionBearing() {
			fields = append(fields, f)
		}
	}
	return fields, nil
}
