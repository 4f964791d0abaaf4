package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_AddKeepsFirstCode(t *testing.T) {
	v := NewValidationError()
	v.Add("email", CodeRequired)
	v.Add("email", CodeInvalid)
	v.Add("nom", CodeTooLong)

	assert.Equal(t, CodeRequired, v.Fields["email"])
	assert.Equal(t, "validation failed: email: required, nom: too_long", v.Error())
}

func TestValidationError_OrNil(t *testing.T) {
	assert.NoError(t, NewValidationError().OrNil())

	var nilErr *ValidationError
	assert.True(t, nilErr.Empty())

	err := FieldError("national_id", CodeDuplicate).OrNil()
	require.Error(t, err)
}

func TestAsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("create identity: %w", FieldError("email", CodeDuplicate))

	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeDuplicate, ve.Fields["email"])

	_, ok = AsValidation(errors.New("boom"))
	assert.False(t, ok)
}
