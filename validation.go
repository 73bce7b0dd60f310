package permkit

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldRoleID is the input field name carrying the assigned role.
const FieldRoleID = "role_id"

// MsgInvalidRoleSelected is the message reported when a user is given a role
// the actor may not assign. It deliberately reads like any other invalid
// selection, not like an authorization failure.
const MsgInvalidRoleSelected = "the selected role id is invalid"

// FieldError is a validation failure scoped to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is the validation error type returned by create/update
// operations. A non-nil FieldErrors means the mutation was rejected entirely
// and nothing was persisted.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "permkit: validation failed"
	}
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Message
	}
	return "permkit: validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether a field has a validation error.
func (fe FieldErrors) Has(field string) bool {
	for _, f := range fe {
		if f.Field == field {
			return true
		}
	}
	return false
}

// AsFieldErrors extracts FieldErrors from an error, if present.
func AsFieldErrors(err error) (FieldErrors, bool) {
	fe, ok := err.(FieldErrors)
	return fe, ok
}

// RoleInput is the payload for creating or updating a role.
type RoleInput struct {
	Name            string `validate:"required"`
	Position        int    `validate:"gte=0"`
	Published       bool
	InEveryoneGroup bool
}

// GroupInput is the payload for creating or updating a group.
type GroupInput struct {
	Name      string `validate:"required"`
	Published bool
}

// UserInput is the payload for creating or updating a user.
type UserInput struct {
	Name      string `validate:"required"`
	Email     string `validate:"required,email"`
	RoleID    string `validate:"required" field:"role_id"`
	Published bool
	GroupIDs  []string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report errors under the snake_case form names rather than Go field
	// names, so transport layers can map them straight onto form fields.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("field"); name != "" {
			return name
		}
		return toSnake(fld.Name)
	})
	return v
}

func validateStruct(v any) FieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var out FieldErrors
	for _, fieldErr := range err.(validator.ValidationErrors) {
		out = append(out, FieldError{
			Field:   fieldErr.Field(),
			Message: messageFor(fieldErr),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "is invalid"
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
