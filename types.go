package gemcert

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is the caller identity stamped onto created records. Auth lives
// upstream; by the time a request reaches the engine the identity is trusted.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// FieldType enumerates the input widget kinds a schema field can declare.
type FieldType string

const (
	FieldTypeText            FieldType = "text"
	FieldTypeTextarea        FieldType = "textarea"
	FieldTypeNumber          FieldType = "number"
	FieldTypeDropdown        FieldType = "dropdown"
	FieldTypeRadio           FieldType = "radio"
	FieldTypeCheckbox        FieldType = "checkbox"
	FieldTypeDate            FieldType = "date"
	FieldTypeFile            FieldType = "file"
	FieldTypeCreatableSelect FieldType = "creatable_select"
	FieldTypeComposite       FieldType = "composite"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeDropdown,
		FieldTypeRadio, FieldTypeCheckbox, FieldTypeDate, FieldTypeFile,
		FieldTypeCreatableSelect, FieldTypeComposite:
		return true
	}
	return false
}

// OptionBearing reports whether fields of this type are fed from the
// attribute catalog at read time.
func (t FieldType) OptionBearing() bool {
	switch t {
	case FieldTypeDropdown, FieldTypeRadio, FieldTypeCreatableSelect:
		return true
	}
	return false
}

// CompositeSubField is one named part of a composite field, e.g. the
// length/width/height parts of a dimension field.
type CompositeSubField struct {
	Name         string    `json:"name"`
	FieldName    string    `json:"field_name"`
	FieldType    FieldType `json:"field_type"`
	IsRequired   bool      `json:"is_required"`
	Placeholder  string    `json:"placeholder,omitempty"`
	DisplayOrder int       `json:"display_order"`
}

// ValidationRules carries optional per-field constraints enforced at
// issuance time.
type ValidationRules struct {
	MinLength          *int     `json:"min_length,omitempty"`
	MaxLength          *int     `json:"max_length,omitempty"`
	MinValue           *float64 `json:"min_value,omitempty"`
	MaxValue           *float64 `json:"max_value,omitempty"`
	Pattern            string   `json:"pattern,omitempty"`
	CustomErrorMessage string   `json:"custom_error_message,omitempty"`
}

// ConditionalLogic hides or shows a field depending on another field's
// value. It is display metadata for form builders and never affects
// required-field validation.
type ConditionalLogic struct {
	ShowIfField string      `json:"show_if_field,omitempty"`
	ShowIfValue *FieldValue `json:"show_if_value,omitempty"`
}

// Matches reports whether the submitted values satisfy the condition. An
// empty condition always matches.
func (c *ConditionalLogic) Matches(values FieldValues) bool {
	if c == nil || c.ShowIfField == "" || c.ShowIfValue == nil {
		return true
	}
	return values.Lookup(c.ShowIfField).String() == c.ShowIfValue.String()
}

// FieldDefinition describes one field of a category schema.
type FieldDefinition struct {
	FieldID          string              `json:"field_id"`
	Label            string              `json:"label"`
	FieldName        string              `json:"field_name"`
	FieldType        FieldType           `json:"field_type"`
	IsRequired       bool                `json:"is_required"`
	Placeholder      string              `json:"placeholder,omitempty"`
	DefaultValue     *FieldValue         `json:"default_value,omitempty"`
	Options          []string            `json:"options,omitempty"`
	Validation       *ValidationRules    `json:"validation,omitempty"`
	DisplayOrder     int                 `json:"display_order"`
	HelpText         string              `json:"help_text,omitempty"`
	ConditionalLogic *ConditionalLogic   `json:"conditional_logic,omitempty"`
	SubFields        []CompositeSubField `json:"sub_fields,omitempty"`
}

// CategorySchema is an admin-authored form definition for one certificate
// group. The fields array is stored as a JSONB document.
type CategorySchema struct {
	UUID                uuid.UUID         `json:"uuid"`
	Name                string            `json:"name"`
	Group               string            `json:"group"`
	Description         string            `json:"description,omitempty"`
	DescriptionTemplate string            `json:"description_template,omitempty"`
	Fields              []FieldDefinition `json:"fields"`
	IsActive            bool              `json:"is_active"`
	CreatedBy           Identity          `json:"created_by"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// FieldByName returns the definition whose field_name matches, nil if none.
func (s *CategorySchema) FieldByName(name string) *FieldDefinition {
	for i := range s.Fields {
		if s.Fields[i].FieldName == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// SchemaSummary is the thin listing projection of a schema.
type SchemaSummary struct {
	UUID     uuid.UUID `json:"uuid"`
	Name     string    `json:"name"`
	Group    string    `json:"group"`
	IsActive bool      `json:"is_active"`
}

// Attribute is one admin-managed option value, e.g. a diamond color grade.
type Attribute struct {
	UUID      uuid.UUID `json:"uuid"`
	Group     string    `json:"group"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Hardness  *float64  `json:"hardness,omitempty"`
	RI        *float64  `json:"ri,omitempty"`
	SG        *float64  `json:"sg,omitempty"`
	CreatedBy Identity  `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CertificateType is one issuance tab, e.g. single_diamond.
type CertificateType struct {
	UUID         uuid.UUID `json:"uuid"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
}

// ObjectRef names a stored object as bucket/key.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ParseObjectRef splits a "bucket/key" string. Keys may contain slashes.
func ParseObjectRef(s string) (ObjectRef, bool) {
	bucket, key, found := strings.Cut(s, "/")
	if !found || bucket == "" || key == "" {
		return ObjectRef{}, false
	}
	return ObjectRef{Bucket: bucket, Key: key}, true
}

func (r ObjectRef) String() string {
	return r.Bucket + "/" + r.Key
}

// IsZero reports whether the ref is unset.
func (r ObjectRef) IsZero() bool {
	return r.Bucket == "" && r.Key == ""
}

// Certificate is one issued certificate record.
type Certificate struct {
	UUID              uuid.UUID   `json:"uuid"`
	CertificateNumber string      `json:"certificate_number"`
	Type              string      `json:"type"`
	ClientID          uuid.UUID   `json:"client_id"`
	CategoryID        *uuid.UUID  `json:"category_id,omitempty"`
	Fields            FieldValues `json:"fields"`
	Photo             *ObjectRef  `json:"photo,omitempty"`
	BrandLogo         *ObjectRef  `json:"brand_logo,omitempty"`
	RearBrandLogo     *ObjectRef  `json:"rear_brand_logo,omitempty"`
	IsRejected        bool        `json:"is_rejected"`
	CreatedBy         Identity    `json:"created_by"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ClientSummary is the existence-lookup projection of a client record.
type ClientSummary struct {
	UUID  uuid.UUID `json:"uuid"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// CertificateView is a certificate enriched for display: joined client and
// schema summaries, a rendered description when the schema carries a
// template, and short-lived signed URLs for stored objects.
type CertificateView struct {
	Certificate
	Client           *ClientSummary `json:"client,omitempty"`
	Schema           *SchemaSummary `json:"schema,omitempty"`
	Description      string         `json:"description,omitempty"`
	PhotoURL         string         `json:"photo_url,omitempty"`
	BrandLogoURL     string         `json:"brand_logo_url,omitempty"`
	RearBrandLogoURL string         `json:"rear_brand_logo_url,omitempty"`
}

// SchemaCreate is the payload for creating a category schema.
type SchemaCreate struct {
	Name                string            `json:"name"`
	Group               string            `json:"group"`
	Description         string            `json:"description,omitempty"`
	DescriptionTemplate string            `json:"description_template,omitempty"`
	Fields              []FieldDefinition `json:"fields,omitempty"`
	IsActive            *bool             `json:"is_active,omitempty"`
}

// SchemaUpdate is the partial-update payload for schema metadata. Nil
// pointers leave the stored value untouched.
type SchemaUpdate struct {
	Name                *string `json:"name,omitempty"`
	Description         *string `json:"description,omitempty"`
	DescriptionTemplate *string `json:"description_template,omitempty"`
	IsActive            *bool   `json:"is_active,omitempty"`
}

// SchemaQuery filters and paginates schema listings.
type SchemaQuery struct {
	Group    string `json:"group,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Search   string `json:"search,omitempty"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	SortBy   string `json:"sort_by,omitempty"` // created_at | name
	Order    string `json:"order,omitempty"`   // asc | desc
}

// SchemaPage is one page of schema listing results.
type SchemaPage struct {
	Data       []*CategorySchema `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	HasNext    bool              `json:"has_next"`
	HasPrev    bool              `json:"has_prev"`
}

// AttributeCreate is the payload for adding a catalog attribute.
type AttributeCreate struct {
	Name     string   `json:"name"`
	Hardness *float64 `json:"hardness,omitempty"`
	RI       *float64 `json:"ri,omitempty"`
	SG       *float64 `json:"sg,omitempty"`
}

// AttributeUpdate is the partial-update payload for an attribute.
type AttributeUpdate struct {
	Name     *string  `json:"name,omitempty"`
	Hardness *float64 `json:"hardness,omitempty"`
	RI       *float64 `json:"ri,omitempty"`
	SG       *float64 `json:"sg,omitempty"`
}

// IssueRequest is the payload for issuing one certificate. The *FileID
// fields name objects previously staged in the temp bucket.
type IssueRequest struct {
	Type            string      `json:"type"`
	ClientID        uuid.UUID   `json:"client_id"`
	CategoryID      *uuid.UUID  `json:"category_id,omitempty"`
	Fields          FieldValues `json:"fields"`
	PhotoFileID     string      `json:"photo_file_id,omitempty"`
	LogoFileID      string      `json:"logo_file_id,omitempty"`
	RearLogoFileID  string      `json:"rear_logo_file_id,omitempty"`
	CreatedBy       Identity    `json:"created_by"`
}

// IssueResult reports a successfully issued certificate.
type IssueResult struct {
	UUID              uuid.UUID `json:"uuid"`
	CertificateNumber string    `json:"certificate_number"`
}

// CertificateQuery filters and paginates certificate listings.
type CertificateQuery struct {
	Type   string `json:"type,omitempty"`
	Search string `json:"search,omitempty"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

// CertificatePage is one page of certificate listing results.
type CertificatePage struct {
	Data       []*CertificateView `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
	HasNext    bool               `json:"has_next"`
	HasPrev    bool               `json:"has_prev"`
}

// TypeStats counts issued certificates per type.
type TypeStats struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// FormField is a field definition enriched with resolved options for form
// rendering.
type FormField struct {
	FieldDefinition
	ResolvedOptions []string `json:"resolved_options,omitempty"`
}

// FormSchema is the client-facing projection of an active schema: enriched
// fields plus the compiled JSON Schema for client-side validation.
type FormSchema struct {
	SchemaID   uuid.UUID      `json:"schema_id"`
	Name       string         `json:"name"`
	Group      string         `json:"group"`
	Fields     []FormField    `json:"fields"`
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}
