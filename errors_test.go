package gemcert

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertErrorFormatting(t *testing.T) {
	err := NewRequiredFieldMissingError("Color")
	assert.Equal(t, "[validation:REQUIRED_FIELD_MISSING] field 'Color': Color is required", err.Error())

	plain := NewPersistFailedError(errors.New("boom"))
	assert.Equal(t, "[internal:PERSIST_FAILED] failed to persist certificate", plain.Error())
}

func TestCertErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewFilePromotionFailedError("abc_photo.jpg", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "abc_photo.jpg", err.Details["file_id"])
}

func TestCertErrorBuilders(t *testing.T) {
	err := NewCertError(ErrorTypeValidation, ErrCodeValidationFailed, "bad value").
		WithField("carat").
		WithDetail("max", 99).
		WithCause(errors.New("out of range"))

	assert.Equal(t, "carat", err.Field)
	assert.Equal(t, 99, err.Details["max"])
	require.NotNil(t, err.Cause)
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"schema not found", NewSchemaNotFoundError("abc"), IsNotFound, true},
		{"client not found", NewClientNotFoundError("abc"), IsNotFound, true},
		{"wrapped not found", fmt.Errorf("lookup: %w", NewCertificateNotFoundError("x")), IsNotFound, true},
		{"duplicate is conflict", NewDuplicateNameError("schema", "Diamond"), IsConflict, true},
		{"duplicate is not validation", NewDuplicateNameError("schema", "Diamond"), IsValidationError, false},
		{"required field is validation", NewRequiredFieldMissingError("Color"), IsValidationError, true},
		{"inactive schema is validation", NewSchemaInactiveError("abc"), IsValidationError, true},
		{"exhausted range", NewAllocationExhaustedError("250817"), IsAllocationExhausted, true},
		{"promotion is storage", NewFilePromotionFailedError("f", nil), IsStorageError, true},
		{"plain error", errors.New("boom"), IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestAsCertError(t *testing.T) {
	inner := NewInvalidGroupError("plastic")
	wrapped := fmt.Errorf("create attribute: %w", inner)

	ce, ok := AsCertError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidGroup, ce.Code)

	_, ok = AsCertError(errors.New("boom"))
	assert.False(t, ok)
}
