package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

var systemIdentity = gemcert.Identity{UserID: "system", Name: "System", Email: "system"}

// Seeder installs the default certificate types, attribute values and
// category schemas on first startup. Each section is skipped when data is
// already present, so running it repeatedly is safe.
type Seeder struct {
	registry gemcert.SchemaRegistry
	catalog  gemcert.AttributeCatalog
	types    *TypeRegistry
}

func NewSeeder(registry gemcert.SchemaRegistry, catalog gemcert.AttributeCatalog, types *TypeRegistry) *Seeder {
	return &Seeder{registry: registry, catalog: catalog, types: types}
}

func (s *Seeder) Run(ctx context.Context) error {
	if err := s.seedTypes(ctx); err != nil {
		return err
	}
	if err := s.seedAttributes(ctx); err != nil {
		return err
	}
	if err := s.seedSchemas(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Seeder) seedTypes(ctx context.Context) error {
	defaults := []gemcert.CertificateType{
		{Name: "Single Diamond", Slug: "single_diamond", DisplayOrder: 0, IsActive: true},
		{Name: "Loose Diamond", Slug: "loose_diamond", DisplayOrder: 1, IsActive: true},
		{Name: "Loose Stone", Slug: "loose_stone", DisplayOrder: 2, IsActive: true},
		{Name: "Single Mounded", Slug: "single_mounded", DisplayOrder: 3, IsActive: true},
		{Name: "Double Mounded", Slug: "double_mounded", DisplayOrder: 4, IsActive: true},
		{Name: "Navaratna", Slug: "navaratna", DisplayOrder: 5, IsActive: true},
	}
	for _, ct := range defaults {
		ct.UUID = uuid.New()
		if err := s.types.Ensure(ctx, &ct); err != nil {
			return fmt.Errorf("seed certificate types: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedAttributes(ctx context.Context) error {
	existing, err := s.catalog.List(ctx, "", "", "")
	if err != nil {
		return fmt.Errorf("check existing attributes: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	metalTypes := []string{"Gold 14K", "Gold 18K", "Gold 22K", "Gold 24K", "White Gold 14K", "White Gold 18K", "Platinum", "Silver"}

	groups := []struct {
		group    string
		attrType string
		names    []string
	}{
		{"diamond", "color", []string{"D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O-Z"}},
		{"diamond", "clarity", []string{"FL", "IF", "VVS1", "VVS2", "VS1", "VS2", "SI1", "SI2", "I1", "I2", "I3"}},
		{"diamond", "cut", []string{"Excellent", "Very Good", "Good", "Fair", "Poor"}},
		{"diamond", "category", []string{"Jewelry", "Loose Diamond", "Pendant", "Ring", "Earrings", "Bracelet", "Necklace"}},
		{"diamond", "metal_type", metalTypes},
		{"diamond", "conclusion", []string{"Natural Diamond", "Lab Grown Diamond", "Treated Diamond", "Natural Colored Diamond"}},
		{"gemstone", "gemstone", []string{"Ruby", "Sapphire", "Emerald", "Pearl", "Coral", "Cat's Eye", "Hessonite", "Blue Sapphire", "Yellow Sapphire"}},
		{"gemstone", "gemstone_shape", []string{"Round", "Oval", "Cushion", "Princess", "Emerald", "Pear", "Marquise", "Heart", "Asscher", "Radiant"}},
		{"gemstone", "gemstone_category", []string{"Natural", "Synthetic", "Treated", "Enhanced"}},
		{"gemstone", "microscopic_observation", []string{"Inclusions", "Clean", "Minor Inclusions", "Eye Clean", "Visible Inclusions"}},
		{"gemstone", "metal_type", metalTypes},
		{"navaratna", "stone_type", []string{"Ruby", "Pearl", "Coral", "Emerald", "Yellow Sapphire", "Diamond", "Blue Sapphire", "Hessonite", "Cat's Eye"}},
		{"navaratna", "metal_type", metalTypes},
	}

	// The diamond and gemstone attribute groups are umbrella slugs, not
	// issuance tabs. They exist as inactive types so catalog validation
	// accepts them without showing up in ListTypes.
	umbrella := []gemcert.CertificateType{
		{Name: "Diamond", Slug: "diamond", DisplayOrder: 90},
		{Name: "Gemstone", Slug: "gemstone", DisplayOrder: 91},
	}
	for _, ct := range umbrella {
		ct.UUID = uuid.New()
		if err := s.types.Ensure(ctx, &ct); err != nil {
			return fmt.Errorf("seed attribute groups: %w", err)
		}
	}

	count := 0
	for _, g := range groups {
		for _, name := range g.names {
			_, err := s.catalog.Create(ctx, systemIdentity, g.group, g.attrType, &gemcert.AttributeCreate{Name: name})
			if err != nil {
				if gemcert.IsConflict(err) {
					continue
				}
				return fmt.Errorf("seed attribute %s/%s/%s: %w", g.group, g.attrType, name, err)
			}
			count++
		}
	}
	zap.S().Infow("seeded default attributes", "count", count)
	return nil
}

func (s *Seeder) seedSchemas(ctx context.Context) error {
	page, err := s.registry.List(ctx, &gemcert.SchemaQuery{Page: 1, Limit: 1})
	if err != nil {
		return fmt.Errorf("check existing schemas: %w", err)
	}
	if page.Total > 0 {
		return nil
	}

	count := 0
	for _, schema := range defaultSchemas() {
		if _, err := s.registry.Create(ctx, systemIdentity, schema); err != nil {
			if gemcert.IsConflict(err) {
				continue
			}
			return fmt.Errorf("seed schema %s: %w", schema.Name, err)
		}
		count++
	}
	zap.S().Infow("seeded default category schemas", "count", count)
	return nil
}

func dimensionField() gemcert.FieldDefinition {
	return gemcert.FieldDefinition{
		Label:     "Dimension (mm)",
		FieldName: "dimension",
		FieldType: gemcert.FieldTypeComposite,
		HelpText:  "Enter length x width x height in millimeters",
		SubFields: []gemcert.CompositeSubField{
			{Name: "Length", FieldName: "length", FieldType: gemcert.FieldTypeText, Placeholder: "e.g., 5.2", DisplayOrder: 0},
			{Name: "Width", FieldName: "width", FieldType: gemcert.FieldTypeText, Placeholder: "e.g., 5.1", DisplayOrder: 1},
			{Name: "Height/Depth", FieldName: "height", FieldType: gemcert.FieldTypeText, Placeholder: "e.g., 3.2", DisplayOrder: 2},
		},
	}
}

func selectField(label, name string, required bool) gemcert.FieldDefinition {
	return gemcert.FieldDefinition{
		Label:      label,
		FieldName:  name,
		FieldType:  gemcert.FieldTypeCreatableSelect,
		IsRequired: required,
		Options:    []string{},
	}
}

func textField(label, name, placeholder string) gemcert.FieldDefinition {
	return gemcert.FieldDefinition{
		Label:       label,
		FieldName:   name,
		FieldType:   gemcert.FieldTypeText,
		Placeholder: placeholder,
	}
}

func commentField() gemcert.FieldDefinition {
	return gemcert.FieldDefinition{
		Label:       "Comments",
		FieldName:   "comment",
		FieldType:   gemcert.FieldTypeTextarea,
		Placeholder: "Additional comments or observations",
	}
}

func defaultSchemas() []*gemcert.SchemaCreate {
	return []*gemcert.SchemaCreate{
		{
			Name:                "Single Diamond Certificate",
			Group:               "single_diamond",
			Description:         "Jewelry with diamonds (mounted diamond jewelry)",
			DescriptionTemplate: "One {metal} {category} Studded with {diamond_piece} {conclusion}.",
			Fields: []gemcert.FieldDefinition{
				selectField("Category", "category", true),
				selectField("Metal Type", "metal", false),
				selectField("Cut", "cut", false),
				selectField("Clarity", "clarity", true),
				selectField("Color", "color", true),
				selectField("Conclusion", "conclusion", false),
				textField("Gross Weight (gms)", "gross_weight", "Enter gross weight in gms"),
				textField("Diamond Weight (cts)", "diamond_weight", "Enter diamond weight in cts"),
				textField("Diamond Piece", "diamond_piece", "Number of diamond pieces"),
				commentField(),
			},
		},
		{
			Name:                "Loose Diamond Certificate",
			Group:               "loose_diamond",
			Description:         "Unmounted diamond certification",
			DescriptionTemplate: "One {shape} shaped {conclusion} weighing {weight}.",
			Fields: []gemcert.FieldDefinition{
				dimensionField(),
				selectField("Shape", "shape", false),
				textField("Hardness", "hardness", "Mohs hardness scale"),
				selectField("Clarity", "clarity", true),
				selectField("Color", "color", true),
				textField("Weight (cts)", "weight", "Weight in carats"),
				textField("SG", "sg", "Specific gravity"),
				selectField("Microscopic Obs", "microscopic_obs", false),
				textField("Conclusion", "conclusion", "Final conclusion"),
				commentField(),
			},
		},
		{
			Name:                "Loose Stone Certificate",
			Group:               "loose_stone",
			Description:         "Unmounted gemstone certification",
			DescriptionTemplate: "One {shape} shaped {gemstone} weighing {weight}.",
			Fields: []gemcert.FieldDefinition{
				selectField("Gemstone", "gemstone", true),
				dimensionField(),
				selectField("Shape", "shape", false),
				textField("Weight (cts)", "weight", "Weight in carats"),
				textField("Color", "color", "Stone color"),
				textField("Hardness", "hardness", "Mohs hardness"),
				textField("SG", "sg", "Specific gravity"),
				textField("RI", "ri", "Refractive index"),
				selectField("Microscopic Obs", "microscopic_obs", false),
				textField("Conclusion", "conclusion", "Final conclusion"),
				commentField(),
			},
		},
		{
			Name:                "Single Mounded Certificate",
			Group:               "single_mounded",
			Description:         "Single gemstone in setting",
			DescriptionTemplate: "One {metal} {category} studded with {gemstone_piece} {gemstone}.",
			Fields: []gemcert.FieldDefinition{
				selectField("Gemstone", "gemstone", true),
				selectField("Category", "category", false),
				selectField("Metal Type", "metal", false),
				textField("Gemstone Piece", "gemstone_piece", "Number of gemstone pieces"),
				selectField("Shape", "shape", false),
				textField("Hardness", "hardness", "Mohs hardness"),
				textField("SG", "sg", "Specific gravity"),
				textField("RI", "ri", "Refractive index"),
				textField("Stone Weight (cts)", "stone_weight", "Stone weight in carats"),
				textField("Gross Weight (gms)", "gross_weight", "Gross weight in gms"),
				selectField("Microscopic Obs", "microscopic_obs", false),
				textField("Conclusion", "conclusion", "Final conclusion"),
				commentField(),
			},
		},
		{
			Name:                "Double Mounded Certificate",
			Group:               "double_mounded",
			Description:         "Two gemstones in setting",
			DescriptionTemplate: "One {metal} {category} studded with {primary_gemstone_piece} {primary_gemstone} and {secondary_gemstone_piece} {secondary_gemstone}.",
			Fields: []gemcert.FieldDefinition{
				selectField("Primary Gemstone", "primary_gemstone", true),
				selectField("Secondary Gemstone", "secondary_gemstone", true),
				selectField("Category", "category", false),
				selectField("Metal Type", "metal", false),
				textField("Primary Gemstone Piece", "primary_gemstone_piece", "Number of primary stones"),
				textField("Secondary Gemstone Piece", "secondary_gemstone_piece", "Number of secondary stones"),
				selectField("Shape", "shape", false),
				textField("Hardness", "hardness", "Mohs hardness"),
				textField("SG", "sg", "Specific gravity"),
				textField("RI", "ri", "Refractive index"),
				textField("Primary Stone Wt", "primary_stone_weight", "Primary stone weight in cts"),
				textField("Secondary Stone Wt", "secondary_stone_weight", "Secondary stone weight in cts"),
				textField("Gross Weight (gms)", "gross_weight", "Gross weight in gms"),
				selectField("Microscopic Obs", "microscopic_obs", false),
				textField("Conclusion", "conclusion", "Final conclusion"),
				commentField(),
			},
		},
		{
			Name:                "Navaratna Certificate",
			Group:               "navaratna",
			Description:         "Nine-gem jewelry (traditional Navaratna)",
			DescriptionTemplate: "One Navaratna {category} set in {metal} with nine precious gemstones.",
			Fields: []gemcert.FieldDefinition{
				selectField("Category", "category", false),
				selectField("Metal Type", "metal", false),
				selectField("Cut", "cut", false),
				selectField("Clarity", "clarity", false),
				selectField("Color", "color", false),
				selectField("Conclusion", "conclusion", false),
				textField("Gross Weight (gms)", "gross_weight", "Gross weight in gms"),
				textField("Diamond Weight (cts)", "diamond_weight", "Diamond weight in cts"),
				textField("Diamond Piece", "diamond_piece", "Number of diamond pieces"),
				commentField(),
			},
		},
	}
}
