package gemcert

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeAllocation ErrorType = "allocation"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes used across the engine
const (
	ErrCodeSchemaNotFound       = "SCHEMA_NOT_FOUND"
	ErrCodeSchemaInactive       = "SCHEMA_INACTIVE"
	ErrCodeSchemaInvalid        = "SCHEMA_INVALID"
	ErrCodeAttributeNotFound    = "ATTRIBUTE_NOT_FOUND"
	ErrCodeCertificateNotFound  = "CERTIFICATE_NOT_FOUND"
	ErrCodeClientNotFound       = "CLIENT_NOT_FOUND"
	ErrCodeTypeNotFound         = "CERTIFICATE_TYPE_NOT_FOUND"
	ErrCodeDuplicateName        = "DUPLICATE_NAME"
	ErrCodeInvalidGroup         = "INVALID_GROUP"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	ErrCodeFilePromotionFailed  = "FILE_PROMOTION_FAILED"
	ErrCodeAllocationExhausted  = "ALLOCATION_EXHAUSTED"
	ErrCodePersistFailed        = "PERSIST_FAILED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// CertError is the unified error type surfaced by the engine. Repositories
// wrap driver errors with fmt.Errorf and the service layer converts them to
// CertError before they cross the package boundary.
type CertError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *CertError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *CertError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to the error
func (e *CertError) WithDetail(key string, value any) *CertError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying cause
func (e *CertError) WithCause(cause error) *CertError {
	e.Cause = cause
	return e
}

// WithField adds field context to the error
func (e *CertError) WithField(field string) *CertError {
	e.Field = field
	return e
}

// NewCertError creates a new CertError
func NewCertError(errorType ErrorType, code, message string) *CertError {
	return &CertError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewSchemaNotFoundError creates a schema not found error
func NewSchemaNotFoundError(schemaID string) *CertError {
	return &CertError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeSchemaNotFound,
		Message: fmt.Sprintf("category schema '%s' not found", schemaID),
		Details: map[string]any{"schema_id": schemaID},
	}
}

// NewSchemaInactiveError reports issuance against a deactivated schema
func NewSchemaInactiveError(schemaID string) *CertError {
	return &CertError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeSchemaInactive,
		Message: fmt.Sprintf("category schema '%s' is not active", schemaID),
		Details: map[string]any{"schema_id": schemaID},
	}
}

// NewSchemaInvalidError reports a field set that fails schema compilation
func NewSchemaInvalidError(message string, cause error) *CertError {
	return &CertError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeSchemaInvalid,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewAttributeNotFoundError creates an attribute not found error
func NewAttributeNotFoundError(attributeID string) *CertError {
	return &CertError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeAttributeNotFound,
		Message: fmt.Sprintf("attribute '%s' not found", attributeID),
		Details: map[string]any{"attribute_id": attributeID},
	}
}

// NewCertificateNotFoundError creates a certificate not found error
func NewCertificateNotFoundError(certificateID string) *CertError {
	return &CertError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeCertificateNotFound,
		Message: fmt.Sprintf("certificate '%s' not found", certificateID),
		Details: map[string]any{"certificate_id": certificateID},
	}
}

// NewClientNotFoundError creates a client not found error
func NewClientNotFoundError(clientID string) *CertError {
	return &CertError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeClientNotFound,
		Message: fmt.Sprintf("client '%s' not found", clientID),
		Details: map[string]any{"client_id": clientID},
	}
}

// NewTypeNotFoundError creates a certificate type not found error
func NewTypeNotFoundError(slug string) *CertError {
	return &CertError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeTypeNotFound,
		Message: fmt.Sprintf("certificate type '%s' not found", slug),
		Details: map[string]any{"type": slug},
	}
}

// NewDuplicateNameError reports a case-insensitive name collision
func NewDuplicateNameError(kind, name string) *CertError {
	return &CertError{
		Type:    ErrorTypeConflict,
		Code:    ErrCodeDuplicateName,
		Message: fmt.Sprintf("%s with name '%s' already exists", kind, name),
		Details: map[string]any{"name": name},
	}
}

// NewInvalidGroupError reports an unknown attribute group
func NewInvalidGroupError(group string) *CertError {
	return &CertError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeInvalidGroup,
		Message: fmt.Sprintf("invalid group '%s'", group),
		Field:   "group",
		Details: map[string]any{"group": group},
	}
}

// NewValidationError creates a validation error for a specific field
func NewValidationError(field, message string) *CertError {
	return &CertError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewRequiredFieldMissingError names the missing field by its display label
func NewRequiredFieldMissingError(label string) *CertError {
	return &CertError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeRequiredFieldMissing,
		Message: fmt.Sprintf("%s is required", label),
		Field:   label,
		Details: make(map[string]any),
	}
}

// NewFilePromotionFailedError reports a staged file that could not be moved
// to permanent storage
func NewFilePromotionFailedError(fileID string, cause error) *CertError {
	return &CertError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeFilePromotionFailed,
		Message: fmt.Sprintf("failed to promote staged file '%s'", fileID),
		Cause:   cause,
		Details: map[string]any{"file_id": fileID},
	}
}

// NewAllocationExhaustedError reports a date whose sequence range is spent
func NewAllocationExhaustedError(dateKey string) *CertError {
	return &CertError{
		Type:    ErrorTypeAllocation,
		Code:    ErrCodeAllocationExhausted,
		Message: fmt.Sprintf("certificate number range exhausted for %s", dateKey),
		Details: map[string]any{"date": dateKey},
	}
}

// NewPersistFailedError reports a failed certificate write
func NewPersistFailedError(cause error) *CertError {
	return &CertError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodePersistFailed,
		Message: "failed to persist certificate",
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CertError {
	return &CertError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// AsCertError extracts a *CertError from an error chain
func AsCertError(err error) (*CertError, bool) {
	var ce *CertError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	if ce, ok := AsCertError(err); ok {
		return ce.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if ce, ok := AsCertError(err); ok {
		return ce.Type == ErrorTypeValidation
	}
	return false
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	if ce, ok := AsCertError(err); ok {
		return ce.Type == ErrorTypeConflict
	}
	return false
}

// IsAllocationExhausted checks if an error is an exhausted number range
func IsAllocationExhausted(err error) bool {
	if ce, ok := AsCertError(err); ok {
		return ce.Code == ErrCodeAllocationExhausted
	}
	return false
}

// IsStorageError checks if an error came from object storage
func IsStorageError(err error) bool {
	if ce, ok := AsCertError(err); ok {
		return ce.Type == ErrorTypeStorage
	}
	return false
}
