// Package validate wraps a shared go-playground validator that reports fields by their JSON names.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/\-]*$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierRegex.MatchString(fl.Field().String())
	})
}

// Struct validates s and returns an error whose message names the first offending field.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return errors.New(Message(verrs[0]))
}

// Message renders a single field error for API clients.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Missing required field: %s", fe.Field())
	case "max":
		return fmt.Sprintf("Field %s must be at most %s characters", fe.Field(), fe.Param())
	case "identifier":
		return fmt.Sprintf("Field %s must start with a letter or digit and contain only letters, digits, '.', '_', ':', '/' or '-'", fe.Field())
	default:
		return fmt.Sprintf("Field %s failed validation: %s", fe.Field(), fe.Tag())
	}
}

// Identifier reports whether s is a valid service identifier.
func Identifier(s string) bool {
	return len(s) <= 128 && identifierRegex.MatchString(s)
}
