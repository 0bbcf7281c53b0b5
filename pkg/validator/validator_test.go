package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,min=10"`
	Mode    string `json:"mode" validate:"omitempty,oneof=newest oldest"`
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{Rating: 4, Comment: "Lovely frames and quick service"}
	assert.NoError(t, Validate(s))
}

func TestValidate_MissingRequired(t *testing.T) {
	s := testStruct{Comment: "Lovely frames and quick service"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "rating", "fields are keyed by JSON name")
	assert.Equal(t, "is required", fields["rating"])
}

func TestValidate_OutOfRange(t *testing.T) {
	s := testStruct{Rating: 6, Comment: "Lovely frames and quick service"}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["rating"], "5")
}

func TestValidate_TooShort(t *testing.T) {
	s := testStruct{Rating: 3, Comment: "short"}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at least 10 characters", valErr.Fields()["comment"])
}

func TestValidate_OneOf(t *testing.T) {
	s := testStruct{Rating: 3, Comment: "Lovely frames and quick service", Mode: "random"}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be one of: newest oldest", valErr.Fields()["mode"])
}

func TestValidateWithMessages_Overrides(t *testing.T) {
	msgs := Messages{
		"rating":      "Please select a rating",
		"comment.min": "Please write at least 10 characters",
	}

	err := ValidateWithMessages(testStruct{Comment: "short"}, msgs)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "Please select a rating", fields["rating"])
	assert.Equal(t, "Please write at least 10 characters", fields["comment"])
	assert.Equal(t, "Please select a rating", valErr.First())
}

func TestValidateWithMessages_TagSpecificOnly(t *testing.T) {
	msgs := Messages{"comment.min": "Please write at least 10 characters"}

	err := ValidateWithMessages(testStruct{Rating: 2}, msgs)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["comment"], "a min override must not apply to required")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'rating'")
	assert.Contains(t, err.Error(), "is required")
}
