package apperr

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json name so codes line up with request bodies
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate runs struct-tag validation on s and translates failures into a
// *ValidationError. Non-validation errors (bad input type) are returned as-is.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := NewValidationError()
	for _, fe := range ves {
		out.Add(fe.Field(), codeForTag(fe.Tag()))
	}
	return out
}

func codeForTag(tag string) string {
	switch tag {
	case "required":
		return CodeRequired
	case "max":
		return CodeTooLong
	case "min":
		return CodeTooShort
	case "eqfield":
		return CodeMismatch
	default:
		return CodeInvalid
	}
}
