package internal

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type fakeAttributes struct {
	byType map[string][]*gemcert.Attribute
}

func (f *fakeAttributes) List(_ context.Context, _, attrType, _ string) ([]*gemcert.Attribute, error) {
	return f.byType[attrType], nil
}

type fakeActiveSchemas struct {
	byGroup map[string]*gemcert.CategorySchema
}

func (f *fakeActiveSchemas) ActiveForGroup(_ context.Context, group string) (*gemcert.CategorySchema, error) {
	return f.byGroup[group], nil
}

func TestOptionResolverCatalogWins(t *testing.T) {
	resolver := NewOptionResolver(&fakeAttributes{byType: map[string][]*gemcert.Attribute{
		"color": {
			{Name: "E"},
			{Name: "D"},
			{Name: "F"},
		},
	}})

	field := gemcert.FieldDefinition{
		FieldName: "color",
		FieldType: gemcert.FieldTypeDropdown,
		Options:   []string{"stale-a", "stale-b"},
	}

	options, err := resolver.Resolve(context.Background(), "single_diamond", field)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "E", "F"}, options, "catalog values override schema options, sorted by name")
}

func TestOptionResolverFallsBackToSchemaOptions(t *testing.T) {
	resolver := NewOptionResolver(&fakeAttributes{byType: map[string][]*gemcert.Attribute{}})

	field := gemcert.FieldDefinition{
		FieldName: "cut",
		FieldType: gemcert.FieldTypeDropdown,
		Options:   []string{"Excellent", "Very Good"},
	}

	options, err := resolver.Resolve(context.Background(), "single_diamond", field)
	require.NoError(t, err)
	assert.Equal(t, []string{"Excellent", "Very Good"}, options)
}

func TestOptionResolverSkipsNonOptionFields(t *testing.T) {
	resolver := NewOptionResolver(&fakeAttributes{byType: map[string][]*gemcert.Attribute{
		"weight": {{Name: "should not matter"}},
	}})

	field := gemcert.FieldDefinition{FieldName: "weight", FieldType: gemcert.FieldTypeText}

	options, err := resolver.Resolve(context.Background(), "single_diamond", field)
	require.NoError(t, err)
	assert.Nil(t, options)
}

func formProviderFixture() (*FormProvider, *gemcert.CategorySchema) {
	schema := &gemcert.CategorySchema{
		UUID:  uuid.New(),
		Name:  "Single Diamond",
		Group: "single_diamond",
		Fields: []gemcert.FieldDefinition{
			{FieldID: "f-color", Label: "Color", FieldName: "color", FieldType: gemcert.FieldTypeDropdown, Options: []string{"D"}},
			{FieldID: "f-weight", Label: "Weight", FieldName: "weight", FieldType: gemcert.FieldTypeText, IsRequired: true},
			{FieldID: "f-cut", Label: "Cut", FieldName: "cut", FieldType: gemcert.FieldTypeRadio, Options: []string{"Excellent"}},
		},
		IsActive: true,
	}
	provider := NewFormProvider(
		&fakeActiveSchemas{byGroup: map[string]*gemcert.CategorySchema{"single_diamond": schema}},
		NewOptionResolver(&fakeAttributes{byType: map[string][]*gemcert.Attribute{
			"color": {{Name: "E"}, {Name: "D"}},
		}}),
	)
	return provider, schema
}

func TestFormSchemaForGroup(t *testing.T) {
	provider, schema := formProviderFixture()

	form, err := provider.FormSchemaForGroup(context.Background(), "single_diamond")
	require.NoError(t, err)

	assert.Equal(t, schema.UUID, form.SchemaID)
	require.Len(t, form.Fields, 3)
	assert.Equal(t, []string{"D", "E"}, form.Fields[0].ResolvedOptions)
	assert.Nil(t, form.Fields[1].ResolvedOptions, "text fields carry no options")
	assert.Equal(t, []string{"Excellent"}, form.Fields[2].ResolvedOptions, "no catalog rows falls back to schema options")

	require.NotNil(t, form.JSONSchema)
	assert.Equal(t, "object", form.JSONSchema["type"])
	assert.Equal(t, []string{"weight"}, form.JSONSchema["required"])
}

func TestFormSchemaForGroupWithoutActiveSchema(t *testing.T) {
	provider, _ := formProviderFixture()

	_, err := provider.FormSchemaForGroup(context.Background(), "navaratna")
	require.Error(t, err)
	assert.True(t, gemcert.IsNotFound(err))
}

func TestManageableFields(t *testing.T) {
	provider, _ := formProviderFixture()

	fields, err := provider.ManageableFields(context.Background(), "single_diamond")
	require.NoError(t, err)

	require.Len(t, fields, 2)
	assert.Equal(t, "color", fields[0].FieldName)
	assert.Equal(t, "cut", fields[1].FieldName)
}
