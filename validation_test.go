package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateRoleInput tests role input validation
func TestValidateRoleInput(t *testing.T) {
	// Valid input
	assert.Nil(t, validateStruct(RoleInput{Name: "Editor", Position: 1}))
	assert.Nil(t, validateStruct(RoleInput{Name: "Admin", Position: 0, Published: true}))

	// Missing name
	fieldErrs := validateStruct(RoleInput{Position: 1})
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "name", fieldErrs[0].Field)
	assert.Equal(t, "this field is required", fieldErrs[0].Message)

	// Negative position
	fieldErrs = validateStruct(RoleInput{Name: "Editor", Position: -1})
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "position", fieldErrs[0].Field)
}

// TestValidateGroupInput tests group input validation
func TestValidateGroupInput(t *testing.T) {
	assert.Nil(t, validateStruct(GroupInput{Name: "Editorial"}))

	fieldErrs := validateStruct(GroupInput{})
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "name", fieldErrs[0].Field)
}

// TestValidateUserInput tests user input validation and field names
func TestValidateUserInput(t *testing.T) {
	valid := UserInput{Name: "Alice", Email: "alice@example.com", RoleID: "role1"}
	assert.Nil(t, validateStruct(valid))

	// Every failure is reported under the form field name
	fieldErrs := validateStruct(UserInput{})
	require.Len(t, fieldErrs, 3)
	assert.True(t, fieldErrs.Has("name"))
	assert.True(t, fieldErrs.Has("email"))
	assert.True(t, fieldErrs.Has(FieldRoleID))

	// Malformed email
	fieldErrs = validateStruct(UserInput{Name: "Alice", Email: "not-an-email", RoleID: "role1"})
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "email", fieldErrs[0].Field)
	assert.Equal(t, "must be a valid email address", fieldErrs[0].Message)
}

// TestFieldErrorsError tests the error string
func TestFieldErrorsError(t *testing.T) {
	assert.Equal(t, "permkit: validation failed", FieldErrors{}.Error())

	fieldErrs := FieldErrors{
		{Field: "name", Message: "this field is required"},
		{Field: FieldRoleID, Message: MsgInvalidRoleSelected},
	}
	assert.Equal(t,
		"permkit: validation failed: name: this field is required; role_id: the selected role id is invalid",
		fieldErrs.Error())
}

// TestFieldErrorsHas tests field lookup
func TestFieldErrorsHas(t *testing.T) {
	fieldErrs := FieldErrors{{Field: "email", Message: "must be a valid email address"}}
	assert.True(t, fieldErrs.Has("email"))
	assert.False(t, fieldErrs.Has("name"))
	assert.False(t, FieldErrors(nil).Has("email"))
}

// TestAsFieldErrors tests extraction from an error value
func TestAsFieldErrors(t *testing.T) {
	var err error = FieldErrors{{Field: "name", Message: "this field is required"}}
	fieldErrs, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Len(t, fieldErrs, 1)

	_, ok = AsFieldErrors(ErrForbidden)
	assert.False(t, ok)
}

// TestToSnake tests Go field name conversion
func TestToSnake(t *testing.T) {
	assert.Equal(t, "name", toSnake("Name"))
	assert.Equal(t, "group_i_ds", toSnake("GroupIDs"))
	assert.Equal(t, "published", toSnake("Published"))
	assert.Equal(t, "in_everyone_group", toSnake("InEveryoneGroup"))
}
